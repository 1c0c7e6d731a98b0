// Package snapshot serves a knowledge export file as a graph provider, so
// connectivity can be resolved offline from a saved NPO release.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/provider"
)

// Options configure a snapshot provider.
type Options struct {
	// Watch reloads the snapshot when the file changes. A resolver computes
	// the connectivity entities it routes to this provider once, when it is
	// built, so models or paths added by a reload count as connectivity
	// from the next session on.
	Watch bool
}

// Provider is a provider.GraphProvider over an exported knowledge document.
type Provider struct {
	path    string
	logger  *zap.SugaredLogger
	watcher *watcher

	mu      sync.RWMutex
	records map[string]*knowledge.Record
	paths   []string
	models  []string
	terms   []string
	build   provider.GraphBuild
}

var _ provider.GraphProvider = (*Provider)(nil)

// Open loads the document at path. Its format follows the file extension.
func Open(path string, opts Options, log *zap.SugaredLogger) (*Provider, error) {
	p := &Provider{path: path, logger: logger.OrNop(log)}
	if err := p.load(); err != nil {
		return nil, err
	}
	if opts.Watch {
		w, err := newWatcher(path, p.load, p.logger)
		if err != nil {
			return nil, err
		}
		p.watcher = w
	}
	return p, nil
}

func (p *Provider) load() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "read snapshot %s", p.path),
			"Create one with 'mapknowledge export'")
	}
	doc, err := knowledge.DecodeDocument(bytes.NewReader(data), knowledge.FormatOf(p.path))
	if err != nil {
		return errors.Wrapf(err, "load snapshot %s", p.path)
	}

	records := make(map[string]*knowledge.Record, len(doc.Knowledge))
	var paths, models, terms []string
	for _, rec := range doc.Knowledge {
		if _, dup := records[rec.ID]; dup {
			continue
		}
		records[rec.ID] = rec
		terms = append(terms, rec.ID)
		if rec.HasConnectivity() {
			paths = append(paths, rec.ID)
		}
		if len(rec.Paths) > 0 || strings.HasPrefix(rec.ID, knowledge.ModelPrefix) {
			models = append(models, rec.ID)
		}
	}
	sort.Strings(paths)
	sort.Strings(models)
	sort.Strings(terms)

	sum := sha256.Sum256(data)
	build := provider.GraphBuild{
		SHA:      hex.EncodeToString(sum[:]),
		Released: strings.TrimPrefix(doc.Source, "sckan-"),
		Release:  doc.Source,
		Path:     p.path,
	}

	p.mu.Lock()
	p.records, p.paths, p.models, p.terms, p.build = records, paths, models, terms, build
	p.mu.Unlock()

	p.logger.Infow("Loaded knowledge snapshot",
		logger.FieldPath, p.path,
		logger.FieldSource, doc.Source,
		logger.FieldCount, len(records))
	return nil
}

func (p *Provider) Name() string { return "snapshot" }

func (p *Provider) Knowledge(_ context.Context, entity string) (*knowledge.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[entity]
	if !ok {
		return knowledge.Stub(entity), nil
	}
	c := rec.Clone()
	c.Source = ""
	return c, nil
}

func (p *Provider) ConnectivityModels(context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.models...), nil
}

func (p *Provider) ConnectivityPaths(context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.paths...), nil
}

func (p *Provider) Terms(context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.terms...), nil
}

func (p *Provider) Build(context.Context) (provider.GraphBuild, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.build, p.build.Release != "", nil
}

func (p *Provider) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Stop()
	p.watcher = nil
	return err
}

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/maintenance"
)

// ExportCmd writes a source's connectivity knowledge as a document
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export connectivity knowledge as JSON or YAML",
	Long: `Resolve every connectivity path and the terms it refers to, and write them
as one knowledge document. With --from-store the stored records of a source
are written instead, without consulting any provider.

Examples:
  mapknowledge export --output sckan-2024-09-21.json
  mapknowledge export --from-store --source sckan-2024-03-04 --format yaml`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// RestoreCmd loads a knowledge document into the store
var RestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a knowledge document into the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

// StatsCmd summarises a knowledge document
var StatsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Count the paths, edges, nodes and terms of a knowledge document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var (
	exportFormat    string
	exportOutput    string
	exportFromStore bool
	exportSource    string
	restorePurge    bool
)

func init() {
	ExportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format: json, yaml (default: from --output, else json)")
	ExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	ExportCmd.Flags().BoolVar(&exportFromStore, "from-store", false, "Export stored records without consulting providers")
	ExportCmd.Flags().StringVar(&exportSource, "source", "", "Source to export with --from-store (default: most recent)")

	RestoreCmd.Flags().BoolVar(&restorePurge, "purge", false, "Discard the knowledge already stored for the source")
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	ctx := commandContext(cmd)
	format := knowledge.JSON
	switch {
	case exportFormat != "":
		if format, err = knowledge.ParseFormat(exportFormat); err != nil {
			return err
		}
	case exportOutput != "":
		format = knowledge.FormatOf(exportOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, ferr := os.Create(exportOutput)
		if ferr != nil {
			return errors.Wrapf(ferr, "create %s", exportOutput)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	var doc *knowledge.Document
	if exportFromStore {
		st, err := openStore(cfg, true)
		if err != nil {
			return err
		}
		defer st.Close()
		if doc, err = maintenance.ExportStore(ctx, st, exportSource, w, format); err != nil {
			return err
		}
	} else {
		s, err := openSession(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		if doc, err = maintenance.Export(ctx, s.Resolver, w, format); err != nil {
			return err
		}
	}

	summary := maintenance.Stats(doc)
	logger.Logger.Infow("Exported knowledge",
		logger.FieldSource, summary.Source,
		logger.FieldCount, summary.Records,
		"paths", summary.Paths,
		logger.FieldPath, exportOutput)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := maintenance.Restore(ctx, st, doc, restorePurge, logger.Logger)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Restored %d records for %s (%d kept)",
		stats.Restored, doc.Source, stats.Kept)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	s := maintenance.Stats(doc)
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(pterm.TableData{
		{"Source", "Records", "Paths", "Edges", "Nodes", "Terms"},
		{
			s.Source,
			fmt.Sprint(s.Records),
			fmt.Sprint(s.Paths),
			fmt.Sprint(s.Edges),
			fmt.Sprint(s.Nodes),
			fmt.Sprint(s.Terms),
		},
	}).Render()
}

func readDocument(path string) (*knowledge.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return knowledge.DecodeDocument(f, knowledge.FormatOf(path))
}

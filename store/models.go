package store

import (
	"context"

	"github.com/teranos/mapknowledge/errors"
)

// ConnectivityModel is a row of the connectivity_models table.
type ConnectivityModel struct {
	Model   string `json:"model"`
	Version string `json:"version,omitempty"`
}

// ConnectivityModels returns the recorded connectivity models ordered by model.
func (s *Store) ConnectivityModels(ctx context.Context) ([]ConnectivityModel, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		"SELECT model, coalesce(version, '') FROM connectivity_models ORDER BY model")
	if err != nil {
		return nil, errors.Wrap(err, "query connectivity models")
	}
	defer rows.Close()

	var models []ConnectivityModel
	for rows.Next() {
		var m ConnectivityModel
		if err := rows.Scan(&m.Model, &m.Version); err != nil {
			return nil, errors.Wrap(err, "scan connectivity model")
		}
		models = append(models, m)
	}
	return models, errors.Wrap(rows.Err(), "iterate connectivity models")
}

// PutConnectivityModel records model as known at version.
func (s *Store) PutConnectivityModel(ctx context.Context, model, version string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO connectivity_models (model, version) VALUES (?, ?)",
			model, nullable(version))
		return errors.Wrapf(err, "record connectivity model %s", model)
	})
}

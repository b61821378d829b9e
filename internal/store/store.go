// Package store persists run history and the stores each scrape produced.
package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Stores. Saving the same chain twice for a run replaces the first save.
	SaveStores(ctx context.Context, runID string, chain model.Chain, records []model.StoreRecord) error
	CountStores(ctx context.Context, runID string) (map[model.Chain]int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string      `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string      `mapstructure:"dsn"`
	Pool   *PoolConfig `mapstructure:"pool"`
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		s, err = NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: sqlite, postgres)", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// storeColumns is the column order of the stores table.
var storeColumns = []string{
	"run_id", "chain", "seq", "name", "address", "city", "phone", "hours",
	"latitude", "longitude", "source_format", "extra",
}

// storeRow flattens a record into storeColumns order. Fields the chain never
// collects become NULL; extras are kept as a JSON object.
func storeRow(runID string, r model.StoreRecord) ([]any, error) {
	extra, err := extraJSON(r.Extra)
	if err != nil {
		return nil, err
	}
	return []any{
		runID, string(r.Chain), r.Seq,
		nullable(r.Name), nullable(r.Address), r.City, nullable(r.Phone), nullable(r.Hours),
		r.Latitude, r.Longitude, string(r.SourceFormat), extra,
	}, nil
}

func nullable(f model.Field) *string {
	if !f.Collected() {
		return nil
	}
	s := f.String()
	return &s
}

func extraJSON(extra map[string]model.Field) (string, error) {
	m := make(map[string]string, len(extra))
	for k, f := range extra {
		if f.Collected() {
			m[k] = f.String()
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal extra")
	}
	return string(b), nil
}

func marshalResult(result *model.RunResult) ([]byte, error) {
	if result == nil {
		result = &model.RunResult{}
	}
	b, err := json.Marshal(result)
	return b, eris.Wrap(err, "store: marshal result")
}

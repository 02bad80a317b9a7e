// Package storage persists recorded traces.
//
// Two backends share the Store interface: a directory of runs, each with
// metadata.json and states.csv, and a single SQLite database.
package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/san-kum/choreo/internal/trace"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("storage: run not found")

type Store interface {
	Init() error
	// Save assigns the trace an id when it has none and persists it.
	Save(tr *trace.Trace) (string, error)
	List() ([]trace.Meta, error)
	Load(id string) (*trace.Meta, error)
	LoadTrace(id string) (*trace.Trace, error)
	Close() error
}

// Open returns the named backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return New(dir), nil
	case "sqlite":
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// NewRunID returns a unique id prefixed with the scenario name.
func NewRunID(scenario string) string {
	if scenario == "" {
		scenario = "run"
	}
	return fmt.Sprintf("%s_%s", scenario, uuid.NewString()[:8])
}

func ensureID(tr *trace.Trace) string {
	if tr.Meta.ID == "" {
		tr.Meta.ID = NewRunID(tr.Meta.Scenario)
	}
	return tr.Meta.ID
}

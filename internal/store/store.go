// Package store persists each user's TestDataset as a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/examreport/internal/model"
)

// DocumentStore loads and saves one dataset document per user.
// Load returns a nil dataset and nil error when the user has no data.
type DocumentStore interface {
	Load(ctx context.Context, userID string) (model.TestDataset, error)
	Save(ctx context.Context, userID string, ds model.TestDataset) error
	Close() error
}

// PersistenceError reports a failed load or save. The caller may retry.
type PersistenceError struct {
	Op     string
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s dataset for user %q: %v", e.Op, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// encode serializes a deep copy of ds. Map keys are emitted sorted, so equal
// datasets encode to equal bytes.
func encode(ds model.TestDataset) ([]byte, error) {
	if ds == nil {
		ds = model.TestDataset{}
	}
	body, err := json.Marshal(ds.Clone())
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return body, nil
}

// decode parses a stored document. A document of any other shape is treated
// as no data.
func decode(userID string, body []byte) model.TestDataset {
	var ds model.TestDataset
	if err := json.Unmarshal(body, &ds); err != nil {
		slog.Warn("stored dataset has unexpected shape, ignoring it", "user", userID, "error", err)
		return nil
	}
	return ds
}

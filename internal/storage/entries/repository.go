package entries

import (
	"context"

	"bestsellers/internal/types"
)

type Repository interface {
	// GetAll returns every entry in insertion order.
	GetAll(ctx context.Context) ([]types.Entry, error)
	// Save upserts entries keyed by their id, the row number of the source
	// file. Entries without an id are rejected.
	Save(ctx context.Context, entries ...types.Entry) error
	// Prune deletes entries with an id above lastId and reports how many
	// were removed.
	Prune(ctx context.Context, lastId int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

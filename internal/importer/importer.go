// Package importer loads bestseller entries into a store in batches.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"bestsellers/internal/storage/entries"
	"bestsellers/internal/types"
)

const DefaultBatchSize = 500

type Consumer interface {
	ConsumeEntries(ctx context.Context, batch []types.Entry) error
}

// LoggerConsumer only logs what would be stored.
type LoggerConsumer struct {
	Logger *slog.Logger
}

func (c *LoggerConsumer) ConsumeEntries(ctx context.Context, batch []types.Entry) error {
	for _, e := range batch {
		c.Logger.DebugContext(ctx, "Consumed entry "+e.Title+" by "+e.Author,
			slog.String("date", e.PublishedDate.String()),
			slog.Int("rank", e.Rank))
	}

	return nil
}

// Finisher is implemented by consumers that need to act once every batch
// was consumed. lastId is the highest entry id seen.
type Finisher interface {
	Finish(ctx context.Context, lastId int64) error
}

// StoringConsumer upserts entries by id. Finish drops stored entries a
// previous, longer import left behind, so re-importing a file is idempotent.
type StoringConsumer struct {
	Entries entries.Repository
	Logger  *slog.Logger
}

func (s *StoringConsumer) ConsumeEntries(ctx context.Context, batch []types.Entry) error {
	if err := s.Entries.Save(ctx, batch...); err != nil {
		return fmt.Errorf("saving entries: %w", err)
	}

	return nil
}

func (s *StoringConsumer) Finish(ctx context.Context, lastId int64) error {
	n, err := s.Entries.Prune(ctx, lastId)
	if err != nil {
		return fmt.Errorf("pruning stale entries: %w", err)
	}

	if n > 0 && s.Logger != nil {
		s.Logger.InfoContext(ctx, "Removed stale entries", slog.Int64("count", n))
	}

	return nil
}

type Importer struct {
	Consumer  Consumer
	Logger    *slog.Logger
	BatchSize int
	// Progress receives the progress bar, nil disables it.
	Progress io.Writer
}

// Run hands rows to the consumer batch by batch, every row as is. It
// returns the number of entries consumed before any error.
func (im *Importer) Run(ctx context.Context, rows []types.Entry) (int, error) {
	batchSize := im.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	var bar *progressbar.ProgressBar
	if im.Progress != nil {
		bar = progressbar.NewOptions64(int64(len(rows)),
			progressbar.OptionSetWriter(im.Progress),
			progressbar.OptionSetDescription("Importing"),
			progressbar.OptionShowCount(),
		)
	}

	done := 0
	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		end := min(start+batchSize, len(rows))
		if err := im.Consumer.ConsumeEntries(ctx, rows[start:end]); err != nil {
			return done, fmt.Errorf("batch starting at %d: %w", start, err)
		}

		done = end
		if bar != nil {
			_ = bar.Add(end - start)
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if f, ok := im.Consumer.(Finisher); ok {
		var lastId int64
		for _, e := range rows {
			lastId = max(lastId, e.Id)
		}

		if err := f.Finish(ctx, lastId); err != nil {
			return done, err
		}
	}

	im.Logger.DebugContext(ctx, "Consumed all entries", slog.Int("count", done))

	return done, nil
}

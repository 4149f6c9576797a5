package csvimport

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// BatchSize bounds the number of rows handed to the bulk mutation per
// call, so a large file imports as a series of small requests.
const BatchSize = 50

// Summary aggregates per-category outcomes across an entire import.
type Summary struct {
	Imported                  int `json:"importedCount"`
	SkippedExistingEmail      int `json:"skippedExistingEmailCount"`
	SkippedDuplicateFileEmail int `json:"skippedDuplicateFileEmailCount"`
	SkippedDuplicateSlug      int `json:"skippedDuplicateSlugCount"`
	SkippedInvalid            int `json:"skippedInvalidCount"`
	TotalRows                 int `json:"totalRows"`
}

func (s *Summary) add(other Summary) {
	s.Imported += other.Imported
	s.SkippedExistingEmail += other.SkippedExistingEmail
	s.SkippedDuplicateFileEmail += other.SkippedDuplicateFileEmail
	s.SkippedDuplicateSlug += other.SkippedDuplicateSlug
	s.SkippedInvalid += other.SkippedInvalid
}

// Batcher imports one batch of rows and reports its outcome counts.
type Batcher interface {
	BulkImport(ctx context.Context, token string, rows []Row) (Summary, error)
}

// Importer drives a parsed guest list through the bulk-import mutation
// in fixed-size batches.
type Importer struct {
	batcher Batcher
	log     zerolog.Logger
}

// NewImporter creates an importer over the given batch mutation.
func NewImporter(batcher Batcher) *Importer {
	return &Importer{
		batcher: batcher,
		log:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "import").Logger(),
	}
}

// Run imports all rows sequentially, batch by batch. A batch failure
// aborts the remaining batches; rows committed by earlier batches stay
// committed.
func (im *Importer) Run(ctx context.Context, token string, rows []Row) (Summary, error) {
	summary := Summary{TotalRows: len(rows)}

	for start := 0; start < len(rows); start += BatchSize {
		end := start + BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		result, err := im.batcher.BulkImport(ctx, token, rows[start:end])
		if err != nil {
			return summary, fmt.Errorf("failed to import batch starting at row %d: %w", start+2, err)
		}
		summary.add(result)

		im.log.Debug().
			Int("processed", end).
			Int("total", len(rows)).
			Msg("Imported batch")
	}

	return summary, nil
}

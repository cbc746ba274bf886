package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mineral-labs/lodegraph/model"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPoolConcurrency = 4
	defaultChunkTimeout    = 30 * time.Second
)

// ExtractionPool runs extraction over a batch of chunks with bounded
// concurrency. One bad chunk never fails the batch: per-chunk errors are
// logged, counted and skipped, and only context cancellation aborts the run.
type ExtractionPool struct {
	extract ExtractFunc
	// Concurrency bounds the number of chunks extracted in parallel
	Concurrency int
	// ChunkTimeout bounds the extraction time of a single chunk
	ChunkTimeout time.Duration
	log          *slog.Logger
}

// NewExtractionPool creates a pool with default concurrency and timeout.
func NewExtractionPool(extract ExtractFunc, logger *slog.Logger) *ExtractionPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionPool{
		extract:      extract,
		Concurrency:  defaultPoolConcurrency,
		ChunkTimeout: defaultChunkTimeout,
		log:          logger,
	}
}

// Run extracts every chunk and returns the extractions index-aligned with
// the input, plus the number of failed chunks. A nil extraction marks a
// failed chunk.
func (p *ExtractionPool) Run(ctx context.Context, chunks []*model.Chunk) ([]*model.Extraction, int, error) {
	extractions := make([]*model.Extraction, len(chunks))
	failed := make([]bool, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.Concurrency)

	for i, chunk := range chunks {
		group.Go(func() error {
			chunkCtx, cancel := context.WithTimeout(groupCtx, p.ChunkTimeout)
			defer cancel()

			extraction, err := p.extract(chunkCtx, chunk.Content)
			if err != nil {
				// Context cancellation aborts the batch; anything else is a
				// per-chunk defect to skip
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				failed[i] = true
				p.log.Warn("Skipping chunk after extraction failure",
					slog.String("chunk_id", chunk.ID.String()),
					slog.Int("seq", chunk.Seq),
					slog.String("error", fmt.Errorf("%w: %v", model.ErrExtractionFailed, err).Error()),
				)
				return nil
			}

			extractions[i] = extraction
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, 0, err
	}

	failedCount := 0
	for _, f := range failed {
		if f {
			failedCount++
		}
	}

	return extractions, failedCount, nil
}

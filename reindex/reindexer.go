// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/lectern/ai"
	"github.com/poiesic/lectern/qdrant"
	"github.com/poiesic/lectern/storage"
)

// VectorIndex is the slice of the vector index client the reindexer writes
// through. *qdrant.Client satisfies it.
type VectorIndex interface {
	// EnsureCollection verifies the collection stores vectors of the
	// configured dimension, creating it when absent. A dimension mismatch
	// is a configuration error and must fail before any write.
	EnsureCollection(ctx context.Context) error

	Upsert(ctx context.Context, points []qdrant.Point) error
}

// Config holds tuning for one reindex run.
type Config struct {
	// BatchSize is the number of chunks embedded and upserted per batch.
	BatchSize int

	// ReportInterval is how often progress is reported, in chunks.
	ReportInterval int

	// MaxRetries is the attempt budget for each embed and upsert call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns the tuning used when none is given.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Reindexer rebuilds every vector point from the relational chunk and notes
// chunk tables, re-embedding the text with the configured embedder.
type Reindexer struct {
	subjects storage.SubjectRepository
	assets   storage.AssetRepository
	chunks   storage.ChunkRepository
	notes    storage.NotesRepository
	embedder ai.Embedder
	index    VectorIndex
	config   *Config
	progress io.Writer
}

// NewReindexer wires a reindexer. A nil config uses DefaultConfig and
// nonpositive config fields fall back to their defaults. A nil progress
// writer discards output.
func NewReindexer(subjects storage.SubjectRepository, assets storage.AssetRepository, chunks storage.ChunkRepository, notes storage.NotesRepository, embedder ai.Embedder, index VectorIndex, config *Config, progress io.Writer) (*Reindexer, error) {
	if subjects == nil {
		return nil, ErrSubjectRepositoryRequired
	}
	if assets == nil {
		return nil, ErrAssetRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if notes == nil {
		return nil, ErrNotesRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	cfg := DefaultConfig()
	if config != nil {
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
		if config.ReportInterval > 0 {
			cfg.ReportInterval = config.ReportInterval
		}
		if config.MaxRetries > 0 {
			cfg.MaxRetries = config.MaxRetries
		}
		if config.RetryDelay > 0 {
			cfg.RetryDelay = config.RetryDelay
		}
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		subjects: subjects,
		assets:   assets,
		chunks:   chunks,
		notes:    notes,
		embedder: embedder,
		index:    index,
		config:   cfg,
		progress: progress,
	}, nil
}

// Run rebuilds all points. The collection dimension is verified before any
// write; a mismatch aborts the run with the index client's configuration
// error. Deterministic point ids make repeated runs overwrite in place.
func (r *Reindexer) Run(ctx context.Context) error {
	if err := r.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("verify collection: %w", err)
	}

	sources, err := r.collect(ctx)
	if err != nil {
		return err
	}
	total := len(sources)
	if total == 0 {
		fmt.Fprintf(r.progress, "No indexed chunks found (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	for start := 0; start < total; start += r.config.BatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(start+r.config.BatchSize, total)
		if err := r.processBatch(ctx, sources[start:end]); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		tracker.Update(end)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(total) / s
	}
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		total, elapsed.Round(time.Second), rate)
	return nil
}

// processBatch embeds one batch of chunk texts and upserts the rebuilt
// points. Both network calls retry with exponential backoff.
func (r *Reindexer) processBatch(ctx context.Context, batch []source) error {
	texts := make([]string, len(batch))
	for i, s := range batch {
		texts[i] = s.text
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("embed chunks after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}

	points := make([]qdrant.Point, len(batch))
	for i, s := range batch {
		points[i] = s.point(vectors[i])
	}

	err = RetryWithBackoff(ctx, func() error {
		return r.index.Upsert(ctx, points)
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("index chunks after %d attempts: %w", r.config.MaxRetries, err)
	}
	return nil
}

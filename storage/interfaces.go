package storage

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// SubjectRepository provides operations for managing subjects.
type SubjectRepository interface {
	// CreateSubject adds a subject. Sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if the id already exists.
	CreateSubject(ctx context.Context, subject *core.Subject) error

	// GetSubject retrieves a subject by id.
	// Returns ErrNotFound if it doesn't exist.
	GetSubject(ctx context.Context, id string) (*core.Subject, error)

	// GetSubjectByName retrieves a subject by its display name.
	// Returns ErrNotFound if no subject has that name.
	GetSubjectByName(ctx context.Context, name string) (*core.Subject, error)

	// ListSubjects returns all subjects ordered by creation time.
	ListSubjects(ctx context.Context) ([]*core.Subject, error)

	// DeleteSubject removes the subject row. Dependent rows are removed by
	// the per-entity repositories; callers orchestrate the cascade.
	DeleteSubject(ctx context.Context, id string) error
}

// AssetRepository provides operations for assets, their stage status, their
// rendered pages and their per-page OCR summaries.
type AssetRepository interface {
	// CreateAsset adds an asset. Sets CreatedAt if not already set.
	// Returns ErrDuplicateKey if the id already exists.
	CreateAsset(ctx context.Context, asset *core.Asset) error

	// GetAsset retrieves an asset by id.
	// Returns ErrNotFound if it doesn't exist.
	GetAsset(ctx context.Context, id string) (*core.Asset, error)

	// FindAssetByHash retrieves the subject's asset with the given content
	// hash, for intake dedup. Returns ErrNotFound when absent.
	FindAssetByHash(ctx context.Context, subjectID, contentHash string) (*core.Asset, error)

	// ListAssets returns a subject's assets ordered by creation time.
	ListAssets(ctx context.Context, subjectID string) ([]*core.Asset, error)

	// DeleteAsset removes the asset row only.
	DeleteAsset(ctx context.Context, id string) error

	// GetStage returns the asset's current stage and message.
	// Returns ErrNotFound when no status row exists yet.
	GetStage(ctx context.Context, assetID string) (core.Stage, string, error)

	// SetStage upserts the asset's stage status. Last writer wins; the
	// message replaces any prior message (empty clears it).
	SetStage(ctx context.Context, assetID string, stage core.Stage, message string) error

	// DeleteStage removes the asset's status row.
	DeleteStage(ctx context.Context, assetID string) error

	// ReplacePages replaces the asset's page rows with the given set.
	ReplacePages(ctx context.Context, assetID string, pages []*core.PageImage) error

	// ListPages returns the asset's pages ordered by page number.
	ListPages(ctx context.Context, assetID string) ([]*core.PageImage, error)

	// DeletePages removes all page rows for the asset.
	DeletePages(ctx context.Context, assetID string) error

	// SaveOCRRecord upserts one per-page OCR summary row.
	SaveOCRRecord(ctx context.Context, record *core.OCRRecord) error

	// ListOCRRecords returns the asset's OCR rows ordered by page number.
	ListOCRRecords(ctx context.Context, assetID string) ([]*core.OCRRecord, error)

	// DeleteOCRRecords removes all OCR rows for the asset.
	DeleteOCRRecords(ctx context.Context, assetID string) error
}

// ChunkRepository provides operations for slide chunks.
type ChunkRepository interface {
	// UpsertChunks writes chunks by id: existing rows are overwritten, so
	// re-chunking an unchanged asset is a no-op at the row level.
	UpsertChunks(ctx context.Context, chunks []*core.Chunk) error

	// GetChunk retrieves one chunk by id.
	// Returns ErrNotFound if it doesn't exist.
	GetChunk(ctx context.Context, id string) (*core.Chunk, error)

	// GetChunks retrieves chunks by id. Missing ids are skipped, not errors.
	GetChunks(ctx context.Context, ids []string) ([]*core.Chunk, error)

	// ListChunksByAsset returns an asset's chunks ordered by
	// (page, start block).
	ListChunksByAsset(ctx context.Context, assetID string) ([]*core.Chunk, error)

	// ListChunksByPageRange returns the asset's chunks with
	// loPage <= page <= hiPage, ordered by (page, start block). Used by
	// neighbor expansion; never touches the vector index.
	ListChunksByPageRange(ctx context.Context, assetID string, loPage, hiPage int) ([]*core.Chunk, error)

	// CountChunks returns the number of chunk rows for the asset.
	CountChunks(ctx context.Context, assetID string) (int64, error)

	// DeleteChunksByAsset removes all chunk rows for the asset.
	DeleteChunksByAsset(ctx context.Context, assetID string) error
}

// NotesRepository provides operations for notes versions and notes chunks.
type NotesRepository interface {
	// CreateNotes adds one notes version. Sets CreatedAt if not already set.
	CreateNotes(ctx context.Context, notes *core.Notes) error

	// GetNotes retrieves one notes version by id.
	// Returns ErrNotFound if it doesn't exist.
	GetNotes(ctx context.Context, id string) (*core.Notes, error)

	// LatestNotesVersion returns the highest stored version for
	// (subject, asset), or 0 when none exist.
	LatestNotesVersion(ctx context.Context, subjectID, assetID string) (int, error)

	// GetLatestNotes retrieves the highest-version notes for (subject, asset).
	// Returns ErrNotFound when none exist.
	GetLatestNotes(ctx context.Context, subjectID, assetID string) (*core.Notes, error)

	// ListNotesBySubject returns a subject's notes ordered by creation time.
	ListNotesBySubject(ctx context.Context, subjectID string) ([]*core.Notes, error)

	// ListNotesByAsset returns all notes versions for (subject, asset).
	ListNotesByAsset(ctx context.Context, subjectID, assetID string) ([]*core.Notes, error)

	// UpsertNotesChunks writes notes chunks by id.
	UpsertNotesChunks(ctx context.Context, chunks []*core.NotesChunk) error

	// ListNotesChunks returns a notes version's chunks ordered by index.
	ListNotesChunks(ctx context.Context, notesID string) ([]*core.NotesChunk, error)

	// DeleteNotes removes one notes version and its chunks.
	DeleteNotes(ctx context.Context, id string) error

	// DeleteNotesByAsset removes every notes version (and chunks) derived
	// from the asset. Returns the ids of the removed notes versions so the
	// caller can clear their vector points.
	DeleteNotesByAsset(ctx context.Context, assetID string) ([]string, error)
}

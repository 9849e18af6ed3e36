package reindex

import "errors"

var (
	// ErrSubjectRepositoryRequired is returned when a subject repository is not provided.
	ErrSubjectRepositoryRequired = errors.New("subject repository required")

	// ErrAssetRepositoryRequired is returned when an asset repository is not provided.
	ErrAssetRepositoryRequired = errors.New("asset repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrNotesRepositoryRequired is returned when a notes repository is not provided.
	ErrNotesRepositoryRequired = errors.New("notes repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrInvalidMaxAttempts is returned when a retry budget is zero or negative.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")
)

package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

type chunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*chunkRepository)(nil)

// NewChunkRepository creates a chunk repository on the shared backend.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &chunkRepository{backend: backend}, nil
}

func (r *chunkRepository) UpsertChunks(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]*chunkRow, len(chunks))
	for i, c := range chunks {
		if err := core.ValidateChunk(c); err != nil {
			return err
		}
		rows[i] = chunkToRow(c)
	}
	return r.backend.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chunk_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 200).Error
}

func (r *chunkRepository) GetChunk(ctx context.Context, id string) (*core.Chunk, error) {
	var row chunkRow
	err := r.backend.db.WithContext(ctx).Where("chunk_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: chunk %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return chunkFromRow(&row), nil
}

func (r *chunkRepository) GetChunks(ctx context.Context, ids []string) ([]*core.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []chunkRow
	err := r.backend.db.WithContext(ctx).Where("chunk_id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chunks := make([]*core.Chunk, len(rows))
	for i := range rows {
		chunks[i] = chunkFromRow(&rows[i])
	}
	return chunks, nil
}

func (r *chunkRepository) ListChunksByAsset(ctx context.Context, assetID string) ([]*core.Chunk, error) {
	var rows []chunkRow
	err := r.backend.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("page_num, start_block").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chunks := make([]*core.Chunk, len(rows))
	for i := range rows {
		chunks[i] = chunkFromRow(&rows[i])
	}
	return chunks, nil
}

func (r *chunkRepository) ListChunksByPageRange(ctx context.Context, assetID string, loPage, hiPage int) ([]*core.Chunk, error) {
	if hiPage < loPage {
		return nil, fmt.Errorf("%w: page range [%d,%d]", storage.ErrInvalidQuery, loPage, hiPage)
	}
	var rows []chunkRow
	err := r.backend.db.WithContext(ctx).
		Where("asset_id = ? AND page_num >= ? AND page_num <= ?", assetID, loPage, hiPage).
		Order("page_num, start_block").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chunks := make([]*core.Chunk, len(rows))
	for i := range rows {
		chunks[i] = chunkFromRow(&rows[i])
	}
	return chunks, nil
}

func (r *chunkRepository) CountChunks(ctx context.Context, assetID string) (int64, error) {
	var count int64
	err := r.backend.db.WithContext(ctx).
		Model(&chunkRow{}).
		Where("asset_id = ?", assetID).
		Count(&count).Error
	return count, err
}

func (r *chunkRepository) DeleteChunksByAsset(ctx context.Context, assetID string) error {
	return r.backend.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&chunkRow{}).Error
}

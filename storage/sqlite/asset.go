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


package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

type assetRepository struct {
	backend *Backend
}

var _ storage.AssetRepository = (*assetRepository)(nil)

// NewAssetRepository creates an asset repository on the shared backend.
func NewAssetRepository(backend *Backend) (storage.AssetRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &assetRepository{backend: backend}, nil
}

func (r *assetRepository) CreateAsset(ctx context.Context, asset *core.Asset) error {
	if err := core.ValidateAsset(asset); err != nil {
		return err
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	err := r.backend.db.WithContext(ctx).Create(assetToRow(asset)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: asset %s", storage.ErrDuplicateKey, asset.Id)
	}
	return err
}

func (r *assetRepository) GetAsset(ctx context.Context, id string) (*core.Asset, error) {
	var row assetRow
	err := r.backend.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: asset %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return assetFromRow(&row), nil
}

func (r *assetRepository) FindAssetByHash(ctx context.Context, subjectID, contentHash string) (*core.Asset, error) {
	var row assetRow
	err := r.backend.db.WithContext(ctx).
		Where("subject_id = ? AND content_hash = ?", subjectID, contentHash).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no asset with that content in subject %s", storage.ErrNotFound, subjectID)
	}
	if err != nil {
		return nil, err
	}
	return assetFromRow(&row), nil
}

func (r *assetRepository) ListAssets(ctx context.Context, subjectID string) ([]*core.Asset, error) {
	var rows []assetRow
	err := r.backend.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	assets := make([]*core.Asset, len(rows))
	for i := range rows {
		assets[i] = assetFromRow(&rows[i])
	}
	return assets, nil
}

func (r *assetRepository) DeleteAsset(ctx context.Context, id string) error {
	return r.backend.db.WithContext(ctx).Where("id = ?", id).Delete(&assetRow{}).Error
}

func (r *assetRepository) GetStage(ctx context.Context, assetID string) (core.Stage, string, error) {
	var row statusRow
	err := r.backend.db.WithContext(ctx).Where("asset_id = ?", assetID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", fmt.Errorf("%w: no status for asset %s", storage.ErrNotFound, assetID)
	}
	if err != nil {
		return "", "", err
	}
	return core.Stage(row.Stage), row.Message, nil
}

func (r *assetRepository) SetStage(ctx context.Context, assetID string, stage core.Stage, message string) error {
	if err := core.ValidateStage(stage); err != nil {
		return err
	}
	row := statusRow{
		AssetID:   assetID,
		Stage:     string(stage),
		Message:   message,
		UpdatedAt: time.Now(),
	}
	return r.backend.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stage", "message", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *assetRepository) DeleteStage(ctx context.Context, assetID string) error {
	return r.backend.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&statusRow{}).Error
}

func (r *assetRepository) ReplacePages(ctx context.Context, assetID string, pages []*core.PageImage) error {
	return r.backend.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("asset_id = ?", assetID).Delete(&pageRow{}).Error; err != nil {
			return err
		}
		if len(pages) == 0 {
			return nil
		}
		rows := make([]*pageRow, len(pages))
		for i, p := range pages {
			rows[i] = pageToRow(p)
		}
		return tx.Create(rows).Error
	})
}

func (r *assetRepository) ListPages(ctx context.Context, assetID string) ([]*core.PageImage, error) {
	var rows []pageRow
	err := r.backend.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("page_num").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	pages := make([]*core.PageImage, len(rows))
	for i := range rows {
		pages[i] = pageFromRow(&rows[i])
	}
	return pages, nil
}

func (r *assetRepository) DeletePages(ctx context.Context, assetID string) error {
	return r.backend.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&pageRow{}).Error
}

func (r *assetRepository) SaveOCRRecord(ctx context.Context, record *core.OCRRecord) error {
	if record == nil || record.AssetId == "" {
		return fmt.Errorf("%w: ocr record requires an asset id", storage.ErrInvalidQuery)
	}
	return r.backend.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset_id"}, {Name: "page_num"}},
			UpdateAll: true,
		}).
		Create(ocrToRow(record)).Error
}

func (r *assetRepository) ListOCRRecords(ctx context.Context, assetID string) ([]*core.OCRRecord, error) {
	var rows []ocrRow
	err := r.backend.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("page_num").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]*core.OCRRecord, len(rows))
	for i := range rows {
		records[i] = ocrFromRow(&rows[i])
	}
	return records, nil
}

func (r *assetRepository) DeleteOCRRecords(ctx context.Context, assetID string) error {
	return r.backend.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&ocrRow{}).Error
}

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

type notesRepository struct {
	backend *Backend
}

var _ storage.NotesRepository = (*notesRepository)(nil)

// NewNotesRepository creates a notes repository on the shared backend.
func NewNotesRepository(backend *Backend) (storage.NotesRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &notesRepository{backend: backend}, nil
}

func (r *notesRepository) CreateNotes(ctx context.Context, notes *core.Notes) error {
	if err := core.ValidateNotes(notes); err != nil {
		return err
	}
	if notes.CreatedAt.IsZero() {
		notes.CreatedAt = time.Now().UTC()
	}
	err := r.backend.db.WithContext(ctx).Create(notesToRow(notes)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: notes %s", storage.ErrDuplicateKey, notes.Id)
	}
	return err
}

func (r *notesRepository) GetNotes(ctx context.Context, id string) (*core.Notes, error) {
	var row notesRow
	err := r.backend.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: notes %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return notesFromRow(&row), nil
}

func (r *notesRepository) LatestNotesVersion(ctx context.Context, subjectID, assetID string) (int, error) {
	var version int
	err := r.backend.db.WithContext(ctx).
		Model(&notesRow{}).
		Select("COALESCE(MAX(version), 0)").
		Where("subject_id = ? AND asset_id = ?", subjectID, assetID).
		Scan(&version).Error
	return version, err
}

func (r *notesRepository) GetLatestNotes(ctx context.Context, subjectID, assetID string) (*core.Notes, error) {
	var row notesRow
	err := r.backend.db.WithContext(ctx).
		Where("subject_id = ? AND asset_id = ?", subjectID, assetID).
		Order("version DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: notes for asset %s", storage.ErrNotFound, assetID)
	}
	if err != nil {
		return nil, err
	}
	return notesFromRow(&row), nil
}

func (r *notesRepository) ListNotesBySubject(ctx context.Context, subjectID string) ([]*core.Notes, error) {
	var rows []notesRow
	err := r.backend.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	notes := make([]*core.Notes, len(rows))
	for i := range rows {
		notes[i] = notesFromRow(&rows[i])
	}
	return notes, nil
}

func (r *notesRepository) ListNotesByAsset(ctx context.Context, subjectID, assetID string) ([]*core.Notes, error) {
	var rows []notesRow
	err := r.backend.db.WithContext(ctx).
		Where("subject_id = ? AND asset_id = ?", subjectID, assetID).
		Order("version").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	notes := make([]*core.Notes, len(rows))
	for i := range rows {
		notes[i] = notesFromRow(&rows[i])
	}
	return notes, nil
}

func (r *notesRepository) UpsertNotesChunks(ctx context.Context, chunks []*core.NotesChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]*notesChunkRow, len(chunks))
	for i, c := range chunks {
		if c.Id == "" || c.NotesId == "" {
			return fmt.Errorf("%w: notes chunk ids required", core.ErrInvalidChunk)
		}
		rows[i] = notesChunkToRow(c)
	}
	return r.backend.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "notes_chunk_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 200).Error
}

func (r *notesRepository) ListNotesChunks(ctx context.Context, notesID string) ([]*core.NotesChunk, error) {
	var rows []notesChunkRow
	err := r.backend.db.WithContext(ctx).
		Where("notes_id = ?", notesID).
		Order("idx").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chunks := make([]*core.NotesChunk, len(rows))
	for i := range rows {
		chunks[i] = notesChunkFromRow(&rows[i])
	}
	return chunks, nil
}

func (r *notesRepository) DeleteNotes(ctx context.Context, id string) error {
	return r.backend.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notes_id = ?", id).Delete(&notesChunkRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&notesRow{}).Error
	})
}

func (r *notesRepository) DeleteNotesByAsset(ctx context.Context, assetID string) ([]string, error) {
	var ids []string
	err := r.backend.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&notesRow{}).Where("asset_id = ?", assetID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("notes_id IN ?", ids).Delete(&notesChunkRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&notesRow{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

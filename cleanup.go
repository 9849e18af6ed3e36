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


package lectern

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// DeleteAsset removes an asset and everything derived from it: catalog rows,
// notes versions, vector points, artifacts and the asset directory. Point
// deletion is best effort; an unreachable index is logged and the catalog is
// cleaned regardless.
func (l *Library) DeleteAsset(ctx context.Context, subjectID, assetID string) error {
	asset, err := l.assetInSubject(ctx, subjectID, assetID)
	if err != nil {
		return err
	}
	return l.removeAsset(ctx, asset)
}

// ResetAsset clears everything the pipeline derived from the asset so the
// next indexing run starts from scratch. The raw file, the asset row and any
// notes versions survive; the stage returns to stored.
func (l *Library) ResetAsset(ctx context.Context, subjectID, assetID string) error {
	if _, err := l.assetInSubject(ctx, subjectID, assetID); err != nil {
		return err
	}

	if err := l.index.DeleteByAssetID(ctx, assetID); err != nil {
		l.logger.Warn("could not delete asset points", "asset_id", assetID, "error", err)
	}
	if err := l.deleteDerived(ctx, assetID); err != nil {
		return err
	}

	dir := l.config.AssetDir(subjectID, assetID)
	for _, artifact := range []string{"pages", "ocr", "chunks.json"} {
		if err := os.RemoveAll(filepath.Join(dir, artifact)); err != nil {
			return fmt.Errorf("remove %s: %w", artifact, err)
		}
	}

	if err := l.assetRepo.SetStage(ctx, assetID, core.StageStored, ""); err != nil {
		return fmt.Errorf("record stage: %w", err)
	}

	l.logger.Info("asset reset", "subject_id", subjectID, "asset_id", assetID)
	return nil
}

// DeleteSubject removes the subject, every asset it owns and the subject
// directory.
func (l *Library) DeleteSubject(ctx context.Context, subjectID string) error {
	if _, err := l.subjectRepo.GetSubject(ctx, subjectID); err != nil {
		return fmt.Errorf("load subject: %w", err)
	}

	assets, err := l.assetRepo.ListAssets(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	for _, asset := range assets {
		if err := l.removeAsset(ctx, asset); err != nil {
			return err
		}
	}

	if err := l.subjectRepo.DeleteSubject(ctx, subjectID); err != nil {
		return fmt.Errorf("delete subject row: %w", err)
	}
	if err := os.RemoveAll(l.config.SubjectDir(subjectID)); err != nil {
		return fmt.Errorf("remove subject dir: %w", err)
	}

	l.logger.Info("subject deleted", "subject_id", subjectID, "assets", len(assets))
	return nil
}

// DeleteNotes removes one notes version: its rows, its points and its
// markdown artifact.
func (l *Library) DeleteNotes(ctx context.Context, notesID string) error {
	n, err := l.notesRepo.GetNotes(ctx, notesID)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	if err := l.index.DeleteByNotesID(ctx, notesID); err != nil {
		l.logger.Warn("could not delete notes points", "notes_id", notesID, "error", err)
	}
	if err := l.notesRepo.DeleteNotes(ctx, notesID); err != nil {
		return fmt.Errorf("delete notes rows: %w", err)
	}

	path := filepath.Join(l.config.NotesDir(n.SubjectId), fmt.Sprintf("%s_v%d.md", n.Id, n.Version))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove notes artifact: %w", err)
	}

	l.logger.Info("notes deleted", "notes_id", notesID, "version", n.Version)
	return nil
}

// removeAsset deletes one asset's points, rows, notes and directory. Points
// go first so a catalog failure leaves orphaned rows rather than orphaned
// points; rows are removed even when the index is unreachable.
func (l *Library) removeAsset(ctx context.Context, asset *core.Asset) error {
	if err := l.index.DeleteByAssetID(ctx, asset.Id); err != nil {
		l.logger.Warn("could not delete asset points", "asset_id", asset.Id, "error", err)
	}

	notesIDs, err := l.notesRepo.DeleteNotesByAsset(ctx, asset.Id)
	if err != nil {
		return fmt.Errorf("delete notes rows: %w", err)
	}
	for _, notesID := range notesIDs {
		if err := l.index.DeleteByNotesID(ctx, notesID); err != nil {
			l.logger.Warn("could not delete notes points", "notes_id", notesID, "error", err)
		}
		l.removeNotesArtifacts(asset.SubjectId, notesID)
	}

	if err := l.deleteDerived(ctx, asset.Id); err != nil {
		return err
	}
	if err := l.assetRepo.DeleteStage(ctx, asset.Id); err != nil {
		return fmt.Errorf("delete stage row: %w", err)
	}
	if err := l.assetRepo.DeleteAsset(ctx, asset.Id); err != nil {
		return fmt.Errorf("delete asset row: %w", err)
	}
	if err := os.RemoveAll(l.config.AssetDir(asset.SubjectId, asset.Id)); err != nil {
		return fmt.Errorf("remove asset dir: %w", err)
	}

	l.logger.Info("asset deleted", "subject_id", asset.SubjectId, "asset_id", asset.Id)
	return nil
}

// deleteDerived removes the catalog rows the pipeline wrote for the asset:
// chunks, pages and OCR results. The stage row is handled by the caller,
// which either deletes it or resets it to stored.
func (l *Library) deleteDerived(ctx context.Context, assetID string) error {
	if err := l.chunkRepo.DeleteChunksByAsset(ctx, assetID); err != nil {
		return fmt.Errorf("delete chunk rows: %w", err)
	}
	if err := l.assetRepo.DeletePages(ctx, assetID); err != nil {
		return fmt.Errorf("delete page rows: %w", err)
	}
	if err := l.assetRepo.DeleteOCRRecords(ctx, assetID); err != nil {
		return fmt.Errorf("delete ocr rows: %w", err)
	}
	return nil
}

// removeNotesArtifacts deletes every versioned markdown file of one notes id.
// The rows are already gone at this point, so versions are globbed rather
// than enumerated.
func (l *Library) removeNotesArtifacts(subjectID, notesID string) {
	pattern := filepath.Join(l.config.NotesDir(subjectID), notesID+"_v*.md")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			l.logger.Warn("could not remove notes artifact", "path", path, "error", err)
		}
	}
}

func (l *Library) assetInSubject(ctx context.Context, subjectID, assetID string) (*core.Asset, error) {
	asset, err := l.assetRepo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if asset.SubjectId != subjectID {
		return nil, fmt.Errorf("%w: asset %s not in subject %s", storage.ErrNotFound, assetID, subjectID)
	}
	return asset, nil
}

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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// BatchOptions holds optional parameters for a subject indexing run.
type BatchOptions struct {
	// Force reprocesses every stage even when the stored stage covers it,
	// and includes assets already marked indexed.
	Force bool

	// Limit caps how many assets this run processes. Zero means no cap.
	Limit int
}

// AssetDetail is one asset's outcome in a batch summary.
type AssetDetail struct {
	AssetId string     `json:"asset_id"`
	Stage   core.Stage `json:"stage"`
	Error   string     `json:"error,omitempty"`
}

// Summary reports a subject indexing run. Processed counts the assets the
// run attempted; Indexed, SkippedMissing and Failed partition them by final
// status. Details preserves the subject's asset order.
type Summary struct {
	Indexed        int           `json:"indexed"`
	SkippedMissing int           `json:"skipped_missing"`
	Failed         int           `json:"failed"`
	Processed      int           `json:"processed"`
	Details        []AssetDetail `json:"details"`
}

// ProcessSubject indexes the subject's assets on the worker pool. Assets
// already marked indexed are skipped unless forced; a positive limit caps
// how many are attempted. Per-asset errors and panics become failed status
// records and summary entries, never a run failure.
func (p *Pipeline) ProcessSubject(ctx context.Context, subjectID string, opts BatchOptions) (*Summary, error) {
	assets, err := p.assets.ListAssets(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	selected := make([]*core.Asset, 0, len(assets))
	for _, asset := range assets {
		stage, _, err := p.assets.GetStage(ctx, asset.Id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("read stage: %w", err)
		}
		if stage == core.StageIndexed && !opts.Force {
			continue
		}
		if opts.Limit > 0 && len(selected) >= opts.Limit {
			break
		}
		selected = append(selected, asset)
	}

	summary := &Summary{Processed: len(selected)}

	// Each worker owns its own slot, so no lock is needed around the slice.
	details := make([]*AssetDetail, len(selected))

	var wg sync.WaitGroup
	for i, asset := range selected {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			details[i] = p.processOne(ctx, asset, opts.Force)
		})
		if submitErr != nil {
			wg.Done()
			details[i] = &AssetDetail{AssetId: asset.Id, Stage: core.StageFailed, Error: submitErr.Error()}
		}
	}
	wg.Wait()

	for _, detail := range details {
		if detail == nil {
			continue
		}
		summary.Details = append(summary.Details, *detail)
		switch detail.Stage {
		case core.StageMissing:
			summary.SkippedMissing++
		case core.StageIndexed:
			summary.Indexed++
		default:
			summary.Failed++
		}
	}

	p.logger.Info("subject indexing finished",
		"subject_id", subjectID,
		"processed", summary.Processed,
		"indexed", summary.Indexed,
		"skipped_missing", summary.SkippedMissing,
		"failed", summary.Failed)
	return summary, nil
}

// processOne runs one asset and reports its final stored status. Panics are
// contained here so a bad asset cannot take down the whole batch.
func (p *Pipeline) processOne(ctx context.Context, asset *core.Asset, force bool) (detail *AssetDetail) {
	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("panic: %v", r)
			p.logger.Error("asset processing panicked",
				"asset_id", asset.Id,
				"panic", r)
			if err := p.assets.SetStage(context.WithoutCancel(ctx), asset.Id, core.StageFailed, message); err != nil {
				p.logger.Error("record panic status",
					"asset_id", asset.Id,
					"err", err)
			}
			detail = &AssetDetail{AssetId: asset.Id, Stage: core.StageFailed, Error: message}
		}
	}()

	if err := p.ProcessAsset(ctx, asset, force); err != nil {
		// ProcessAsset already recorded the failed stage.
		return &AssetDetail{AssetId: asset.Id, Stage: core.StageFailed, Error: err.Error()}
	}

	stage, message, err := p.assets.GetStage(ctx, asset.Id)
	if err != nil {
		return &AssetDetail{AssetId: asset.Id, Stage: core.StageFailed, Error: err.Error()}
	}
	return &AssetDetail{AssetId: asset.Id, Stage: stage, Error: message}
}

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


package ocr

import "github.com/poiesic/lectern/core"

// DefaultCaptionMinChars is the recognized-text length below which a page
// is considered too sparse and flagged for image captioning.
const DefaultCaptionMinChars = 80

// BuildRecord summarizes a recognized page into its catalog record.
// A page needs captioning when it yields fewer than captionMinChars
// characters or no blocks at all.
func BuildRecord(page *core.OCRPage, assetID, blockPath string, captionMinChars int) core.OCRRecord {
	if captionMinChars <= 0 {
		captionMinChars = DefaultCaptionMinChars
	}
	textLen := page.TextLen()
	return core.OCRRecord{
		AssetId:       assetID,
		PageNum:       page.Page,
		Engine:        page.Engine,
		TextLen:       textLen,
		AvgConfidence: page.AvgConfidence(),
		NeedsCaption:  textLen < captionMinChars || len(page.Blocks) == 0,
		BlockPath:     blockPath,
	}
}

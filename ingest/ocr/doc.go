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


// Package ocr recognizes text on rendered page images.
//
// The tesseract engine shells out to the tesseract binary in TSV mode and
// groups word rows into positioned blocks with averaged confidence. The
// tesseract-text engine trades layout for simplicity and returns one
// whole-page block. When no binary is installed, automatic engine selection
// falls back to a stub that emits a placeholder block, so ingestion can
// proceed and the page is flagged for captioning.
//
// Recognized pages are persisted as per-page JSON artifacts; BuildRecord
// derives the catalog row that points at them.
package ocr

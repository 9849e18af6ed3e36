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


// Package ingest turns stored assets into retrievable vector points.
//
// A Pipeline runs one asset through the ordered stages render, ocr_done,
// chunked, embedded and indexed. Stage status persists in the catalog and
// gates re-runs: a stage executes only when the stored stage does not cover
// it yet (core.ShouldRun), so a crashed run resumes where it stopped and a
// finished asset is a no-op. Force re-runs everything. A missing source file
// is terminal: the asset is marked missing and skipped without error.
//
// Derived files live next to the stored source under
// <DataDir>/subjects/<subject>/<asset>/: rendered pages in pages/, per-page
// OCR artifacts in ocr/, and the ordered chunk cache in chunks.json.
//
// ProcessSubject fans independent assets out over a worker pool while
// same-asset runs stay serialized by an in-process lock. Per-asset failures
// and panics are recorded as failed status and summarized, never escalated,
// so one bad file cannot stop a batch.
package ingest

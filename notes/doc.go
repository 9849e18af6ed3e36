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


// Package notes generates and versions markdown study notes per asset.
//
// Generate prompts the model with the asset's indexed chunk text and saves
// the returned markdown through Save, which handles both generated and
// user-authored notes: it writes a versioned artifact under
// subjects/<subject>/notes/, stores notes and chunk rows, embeds the chunks
// and upserts their vector points. Versions are monotonic per
// (subject, asset); each new version deletes the prior version's points so
// retrieval only ever sees the latest notes.
//
// Markdown is chunked along headings (sections.go), with oversized sections
// windowed to the configured char budget. Chunk ids are deterministic, so
// saving identical markdown under the same notes id reproduces identical
// points.
package notes

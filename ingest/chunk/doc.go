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


// Package chunk groups OCR blocks into reading-ordered retrieval chunks.
//
// Blocks are sorted top-to-bottom then left-to-right by bounding-box origin
// and packed greedily up to a character budget, with a configurable block
// overlap between consecutive chunks. Chunk ids are deterministic over
// (asset, page, block range), so re-chunking unchanged OCR output yields
// byte-identical ids and text.
package chunk

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


// Package storage defines the relational catalog abstraction for lectern.
//
// The catalog is the authoritative record of subjects, assets, pipeline
// stage status, rendered pages, OCR summaries, chunks and notes. The vector
// index is derived data: anything in it can be rebuilt from the catalog plus
// the on-disk artifacts.
//
// # Constructor Return Type Pattern
//
// Public constructors return these interfaces rather than concrete types:
//
//	repo, err := sqlite.NewAssetRepository(backend)  // returns storage.AssetRepository
//
// This keeps business logic decoupled from the SQLite implementation and
// lets tests substitute in-memory fakes without modification.
//
// # Repositories
//
//   - SubjectRepository: subjects
//   - AssetRepository: assets, stage status, pages, OCR summaries
//   - ChunkRepository: slide chunks (the atomic retrieval unit)
//   - NotesRepository: notes versions and notes chunks
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use. The
// indexing pipeline writes rows for distinct assets from parallel workers.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage

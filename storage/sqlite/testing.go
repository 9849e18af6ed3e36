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

import "github.com/poiesic/lectern/storage"

// MemoryRepositories bundles every repository on one in-memory backend.
// Caller must close the backend when done.
type MemoryRepositories struct {
	Subjects storage.SubjectRepository
	Assets   storage.AssetRepository
	Chunks   storage.ChunkRepository
	Notes    storage.NotesRepository
	Backend  *Backend
}

// NewMemoryRepositories creates in-memory repositories for testing.
func NewMemoryRepositories() (*MemoryRepositories, error) {
	backend, err := OpenBackend(":memory:")
	if err != nil {
		return nil, err
	}

	subjects, err := NewSubjectRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	assets, err := NewAssetRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	notes, err := NewNotesRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &MemoryRepositories{
		Subjects: subjects,
		Assets:   assets,
		Chunks:   chunks,
		Notes:    notes,
		Backend:  backend,
	}, nil
}

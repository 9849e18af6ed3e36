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


// Package qdrant is a minimal REST client for the Qdrant vector index,
// scoped to the single collection the library owns.
//
// Point ids are deterministic UUIDv5 values derived from stable identity
// strings (SlideIdentity, NotesIdentity), so indexing the same chunk twice
// overwrites one point instead of creating a duplicate. That property is
// what makes re-indexing and collection rebuilds safe.
//
// Every operation returns *OperationError on failure, carrying a
// machine-readable code (validation_failed, encode_failed, decode_failed,
// transport_failed, timeout, query_failed, config_mismatch), the operation
// name and the HTTP status when one was received. All calls are bounded by
// the configured timeout.
package qdrant

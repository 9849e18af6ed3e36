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


// Package retrieval finds the indexed chunks relevant to a question.
//
// The Searcher runs similarity queries against the vector index, scoped to a
// subject. A subject filter that matches nothing is retried once without the
// filter so a stale subject id degrades to an unscoped answer instead of an
// empty one. Slide and notes content are searched separately; notes carry a
// source_type payload filter. Hits whose payload lost its text are hydrated
// from the relational chunk rows.
//
// The Expander widens a hit set with chunks from adjacent pages of the same
// asset, bounded by a window and a global cap, using the relational store
// only.
//
// Every search can record a Debug trace: what was queried, the shape of the
// query embedding, what came back, and which fallbacks fired.
package retrieval

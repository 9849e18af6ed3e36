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


// Package web fetches supplementary search results when the indexed
// material cannot answer a question.
//
// The client talks to SerpAPI's Google engine and applies guardrails before
// anything reaches a prompt: domain allow and block lists, per-query result
// caps, and URL deduplication. BuildQueries turns a question into a short
// list of sanitized queries. Web search failures are reported to the caller
// as errors and are expected to degrade the answer, never to abort it.
package web

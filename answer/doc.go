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


// Package answer assembles grounded answers to study questions.
//
// The Answerer orchestrates the full flow: embed the question, search slide
// and notes content with a subject filter, merge and score-filter the hits,
// expand them with neighboring chunks, consult the rule-based Judge about
// web fallback, render the prompt, and call the language model. Every answer
// carries citations into the source material and a retrieval.Debug trace.
//
// Operational failures degrade instead of erroring: an unreachable model or
// index produces an answer with fallback text and debug detail. Errors are
// reserved for invalid requests.
package answer

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


package ai

import "errors"

var (
	// ErrEmbeddingFailed indicates the embedding service returned an error
	// or an unusable vector.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed indicates the chat completion service returned
	// an error or an empty completion.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidVector indicates a vector with the wrong dimension or
	// non-finite components.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrUnknownProvider indicates an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown ai provider")
)

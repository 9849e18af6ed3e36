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


package web

import "errors"

var (
	// ErrAPIKeyRequired is returned when a client is built without an API key.
	ErrAPIKeyRequired = errors.New("web api key required")

	// ErrInvalidEndpoint is returned when the search endpoint is not a valid URL.
	ErrInvalidEndpoint = errors.New("invalid web search endpoint")

	// ErrSearchFailed wraps transport, status, and decode failures from the
	// search provider.
	ErrSearchFailed = errors.New("web search failed")
)

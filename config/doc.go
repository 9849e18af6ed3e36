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


// Package config loads and validates the process-wide configuration.
//
// Configuration comes from a single YAML file; absent keys keep their
// defaults, and an absent file yields the full default configuration.
// Secrets are never stored in the file itself: fields ending in KeyEnv name
// an environment variable the value is read from at use time.
//
// The loaded Config is constructed once and passed explicitly to every
// component that needs it. There is no package-level configuration state.
package config

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


// Package sqlite implements the storage repositories on SQLite via gorm.
//
// One Backend (one database file, or ":memory:" for tests) is shared by all
// repositories. Schema migration runs at open time. Row types live in
// models.go and are converted to and from core types at the repository
// boundary; gorm tags never leak into core.
package sqlite

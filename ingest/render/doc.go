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


// Package render normalizes study material into per-page PNG images.
//
// PDFs are validated and counted with pdfcpu, then rasterized one page at a
// time with the external pdftoppm binary. Standalone images (png, jpeg, gif,
// bmp, tiff, webp) become one-page documents. Either way the output contract
// is identical: ordered 1-based pages named page_%04d.png with measured
// dimensions.
package render

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


package ocr

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/poiesic/lectern/core"
)

// Engine names accepted in configuration.
const (
	EngineAuto          = "auto"
	EngineTesseract     = "tesseract"
	EngineTesseractText = "tesseract-text"
	EngineStub          = "stub"
)

// DefaultLang is the tesseract language pack used when none is configured.
const DefaultLang = "eng"

// DefaultFullPageBBox is the normalized bounding box assigned to synthetic
// whole-page blocks produced by engines without layout output.
var DefaultFullPageBBox = [4]float64{0, 0, 1, 1}

// Engine recognizes one rendered page image into the normalized OCR form.
// Output is identical across engines: positioned blocks with confidence,
// empty-text blocks dropped.
type Engine interface {
	// Name identifies the engine variant in status records and artifacts.
	Name() string

	Recognize(ctx context.Context, imagePath string, pageNum int) (*core.OCRPage, error)
}

// Config selects and tunes the OCR engine.
type Config struct {
	// Engine is one of auto, tesseract, tesseract-text, stub.
	// Empty means auto.
	Engine string

	// Lang is the tesseract language pack. Empty means DefaultLang.
	Lang string

	// TesseractBin overrides the tesseract binary, mainly for tests.
	TesseractBin string

	// CaptionMinChars is the text length below which a page is flagged as
	// needing a caption. Zero means DefaultCaptionMinChars.
	CaptionMinChars int

	// FullPageBBox is the box for synthetic whole-page blocks. The zero
	// value means DefaultFullPageBBox.
	FullPageBBox [4]float64
}

// New selects the OCR engine for the config. The returned warning is
// non-empty when auto selection had to fall back to the stub; the caller
// records it on the asset's status. An explicitly requested engine that
// cannot run is an error, never a silent fallback.
func New(config Config) (Engine, string, error) {
	lang := config.Lang
	if lang == "" {
		lang = DefaultLang
	}
	bin := config.TesseractBin
	if bin == "" {
		bin = "tesseract"
	}
	bbox := config.FullPageBBox
	if bbox == [4]float64{} {
		bbox = DefaultFullPageBBox
	}

	switch config.Engine {
	case "", EngineAuto:
		if _, err := exec.LookPath(bin); err != nil {
			warning := fmt.Sprintf("tesseract unavailable: %v; using stub OCR", err)
			return NewStubEngine(bbox), warning, nil
		}
		return newTesseractEngine(bin, lang), "", nil
	case EngineTesseract:
		if _, err := exec.LookPath(bin); err != nil {
			return nil, "", fmt.Errorf("%w: %s not found: %v", ErrOCRFailed, bin, err)
		}
		return newTesseractEngine(bin, lang), "", nil
	case EngineTesseractText:
		if _, err := exec.LookPath(bin); err != nil {
			return nil, "", fmt.Errorf("%w: %s not found: %v", ErrOCRFailed, bin, err)
		}
		return newTesseractTextEngine(bin, lang, bbox), "", nil
	case EngineStub:
		return NewStubEngine(bbox), "", nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownEngine, config.Engine)
	}
}

package ocr

import (
	"context"
	"fmt"

	"github.com/poiesic/lectern/core"
)

// stubEngine emits a single placeholder block so downstream stages always
// have something to chunk and flag for captioning.
type stubEngine struct {
	fullPageBBox [4]float64
}

// NewStubEngine returns an engine that recognizes nothing. It stands in
// when no real OCR binary is installed.
func NewStubEngine(fullPageBBox [4]float64) Engine {
	return &stubEngine{fullPageBBox: fullPageBBox}
}

func (e *stubEngine) Name() string { return EngineStub }

func (e *stubEngine) Recognize(_ context.Context, _ string, pageNum int) (*core.OCRPage, error) {
	return &core.OCRPage{
		Page:   pageNum,
		Engine: e.Name(),
		Blocks: []core.OCRBlock{{
			Text:       fmt.Sprintf("(OCR unavailable for page %d: stub engine)", pageNum),
			BBox:       e.fullPageBBox,
			Confidence: 0,
		}},
	}, nil
}

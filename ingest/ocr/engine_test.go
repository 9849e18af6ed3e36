package ocr

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/poiesic/lectern/core"
)

func missingBin(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "no-such-tesseract")
}

func TestNewAutoFallsBackToStub(t *testing.T) {
	engine, warning, err := New(Config{Engine: EngineAuto, TesseractBin: missingBin(t)})
	if err != nil {
		t.Fatalf("auto selection should not fail: %v", err)
	}
	if engine.Name() != EngineStub {
		t.Fatalf("engine = %q, want %q", engine.Name(), EngineStub)
	}
	if !strings.Contains(warning, "using stub OCR") {
		t.Fatalf("warning = %q, want fallback notice", warning)
	}
}

func TestNewExplicitEngineMissingBinary(t *testing.T) {
	for _, name := range []string{EngineTesseract, EngineTesseractText} {
		_, _, err := New(Config{Engine: name, TesseractBin: missingBin(t)})
		if !errors.Is(err, ErrOCRFailed) {
			t.Errorf("New(%q) error = %v, want ErrOCRFailed", name, err)
		}
	}
}

func TestNewUnknownEngine(t *testing.T) {
	_, _, err := New(Config{Engine: "paddle"})
	if !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("error = %v, want ErrUnknownEngine", err)
	}
}

func TestStubEngineRecognize(t *testing.T) {
	engine, warning, err := New(Config{Engine: EngineStub})
	if err != nil || warning != "" {
		t.Fatalf("New(stub) = warning %q, err %v", warning, err)
	}

	page, err := engine.Recognize(context.Background(), "anything.png", 2)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if page.Page != 2 || page.Engine != EngineStub {
		t.Fatalf("page = %d engine = %q", page.Page, page.Engine)
	}
	if len(page.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(page.Blocks))
	}
	block := page.Blocks[0]
	if !strings.Contains(block.Text, "page 2") {
		t.Errorf("placeholder text = %q, want page number", block.Text)
	}
	if block.BBox != DefaultFullPageBBox {
		t.Errorf("bbox = %v, want full page", block.BBox)
	}
	if block.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", block.Confidence)
	}
}

func TestBuildRecord(t *testing.T) {
	dense := &core.OCRPage{
		Page:   3,
		Engine: EngineTesseract,
		Blocks: []core.OCRBlock{
			{Text: strings.Repeat("a", 60), Confidence: 0.9},
			{Text: strings.Repeat("b", 40), Confidence: 0.7},
		},
	}

	record := BuildRecord(dense, "asset-1", "/artifacts/page_0003.json", 0)
	if record.AssetId != "asset-1" || record.PageNum != 3 || record.Engine != EngineTesseract {
		t.Fatalf("record identity = %+v", record)
	}
	if record.BlockPath != "/artifacts/page_0003.json" {
		t.Errorf("block path = %q", record.BlockPath)
	}
	if record.TextLen != 100 {
		t.Errorf("text len = %d, want 100", record.TextLen)
	}
	if record.AvgConfidence != 0.8 {
		t.Errorf("avg confidence = %v, want 0.8", record.AvgConfidence)
	}
	if record.NeedsCaption {
		t.Error("100 chars should not need a caption")
	}

	sparse := &core.OCRPage{Page: 1, Engine: EngineTesseract, Blocks: []core.OCRBlock{{Text: "short"}}}
	if !BuildRecord(sparse, "asset-1", "p", 0).NeedsCaption {
		t.Error("5 chars should need a caption at the default threshold")
	}
	if BuildRecord(sparse, "asset-1", "p", 3).NeedsCaption {
		t.Error("5 chars should pass a threshold of 3")
	}

	empty := &core.OCRPage{Page: 1, Engine: EngineStub}
	if !BuildRecord(empty, "asset-1", "p", 1).NeedsCaption {
		t.Error("a page without blocks always needs a caption")
	}
}

func TestPageArtifactRoundTrip(t *testing.T) {
	page := &core.OCRPage{
		Page:   7,
		Engine: EngineTesseract,
		Blocks: []core.OCRBlock{
			{Text: "Mitochondria", BBox: [4]float64{10, 20, 200, 60}, Confidence: 0.93},
		},
		Width:  1275,
		Height: 1650,
	}

	dir := filepath.Join(t.TempDir(), "assets", "a1", "ocr")
	path, err := SavePage(page, dir)
	if err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	if filepath.Base(path) != "page_0007.json" {
		t.Fatalf("artifact name = %q", filepath.Base(path))
	}

	loaded, err := LoadPage(path)
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if !reflect.DeepEqual(page, loaded) {
		t.Fatalf("round trip mismatch:\n  saved  %+v\n  loaded %+v", page, loaded)
	}

	if _, err := LoadPage(filepath.Join(dir, "page_9999.json")); err == nil {
		t.Fatal("loading a missing artifact should fail")
	}
}

package chunk

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/poiesic/lectern/core"
)

const testAsset = "a1b2c3d4e5f60718"

func block(text string, bbox [4]float64) core.OCRBlock {
	return core.OCRBlock{Text: text, BBox: bbox, Confidence: 0.9}
}

// Three blocks of 100/50/80 chars with max=150, min=50, overlap=1 must pack
// into exactly two chunks: blocks [0,1] and the overlapping [1,2].
func TestBlocksPacking(t *testing.T) {
	blocks := []core.OCRBlock{
		block(strings.Repeat("a", 100), [4]float64{0.0, 0.0, 1.0, 0.1}),
		block(strings.Repeat("b", 50), [4]float64{0.0, 0.2, 1.0, 0.3}),
		block(strings.Repeat("c", 80), [4]float64{0.0, 0.4, 1.0, 0.5}),
	}
	config := Config{MaxChars: 150, MinChars: 50, OverlapBlocks: 1}

	chunks := Blocks("bio101", testAsset, 1, blocks, config)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := chunks[0]
	if first.StartBlock != 0 || first.EndBlock != 2 {
		t.Errorf("first chunk range [%d,%d)", first.StartBlock, first.EndBlock)
	}
	if first.Id != "3ba215d7d41a659001f1" {
		t.Errorf("first chunk id = %s", first.Id)
	}
	if first.CharCount != 151 {
		t.Errorf("first chunk chars = %d", first.CharCount)
	}
	if first.BBox != [4]float64{0.0, 0.0, 1.0, 0.3} {
		t.Errorf("first chunk bbox = %v", first.BBox)
	}
	if first.SubjectId != "bio101" || first.AssetId != testAsset || first.PageNum != 1 {
		t.Errorf("first chunk identity fields: %+v", first)
	}

	second := chunks[1]
	if second.StartBlock != 1 || second.EndBlock != 3 {
		t.Errorf("second chunk range [%d,%d)", second.StartBlock, second.EndBlock)
	}
	if second.Id != "de4271c0e045bf143796" {
		t.Errorf("second chunk id = %s", second.Id)
	}
	if second.CharCount != 131 {
		t.Errorf("second chunk chars = %d", second.CharCount)
	}
	if !strings.HasPrefix(second.Text, strings.Repeat("b", 50)+"\n") {
		t.Error("second chunk must start with the overlap block")
	}
}

func TestBlocksNoOverlap(t *testing.T) {
	blocks := []core.OCRBlock{
		block(strings.Repeat("a", 100), [4]float64{0.0, 0.0, 1.0, 0.1}),
		block(strings.Repeat("b", 50), [4]float64{0.0, 0.2, 1.0, 0.3}),
		block(strings.Repeat("c", 80), [4]float64{0.0, 0.4, 1.0, 0.5}),
	}
	config := Config{MaxChars: 150, MinChars: 50, OverlapBlocks: 0}

	chunks := Blocks("bio101", testAsset, 1, blocks, config)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].StartBlock != 2 || chunks[1].EndBlock != 3 {
		t.Errorf("second chunk range [%d,%d)", chunks[1].StartBlock, chunks[1].EndBlock)
	}
	if chunks[1].Id != "499caf8f81a7bb6c69f1" {
		t.Errorf("second chunk id = %s", chunks[1].Id)
	}
}

func TestBlocksMinCharsPullsPastMax(t *testing.T) {
	blocks := []core.OCRBlock{
		block(strings.Repeat("d", 10), [4]float64{0.0, 0.0, 1.0, 0.1}),
		block(strings.Repeat("e", 10), [4]float64{0.0, 0.2, 1.0, 0.3}),
		block(strings.Repeat("f", 200), [4]float64{0.0, 0.4, 1.0, 0.5}),
	}
	config := Config{MaxChars: 100, MinChars: 50, OverlapBlocks: 1}

	chunks := Blocks("bio101", testAsset, 3, blocks, config)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Id != "95b4219f6fae0b077a4b" {
		t.Errorf("chunk id = %s", chunks[0].Id)
	}
	if chunks[0].CharCount != 222 {
		t.Errorf("chunk chars = %d", chunks[0].CharCount)
	}
}

func TestBlocksReadingOrder(t *testing.T) {
	// Given out of order; sorted by (y0, x0) before packing.
	blocks := []core.OCRBlock{
		block("third", [4]float64{0.0, 0.9, 1.0, 1.0}),
		block("first", [4]float64{0.1, 0.1, 0.5, 0.2}),
		block("second", [4]float64{0.6, 0.1, 0.9, 0.2}),
	}
	config := Config{MaxChars: 1000, MinChars: 0, OverlapBlocks: 1}

	chunks := Blocks("subj", testAsset, 4, blocks, config)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "first\nsecond\nthird" {
		t.Errorf("text = %q", chunks[0].Text)
	}
	if chunks[0].Id != "ddca63ed67b01c6ce843" {
		t.Errorf("chunk id = %s", chunks[0].Id)
	}
	if chunks[0].BBox != [4]float64{0.0, 0.1, 1.0, 1.0} {
		t.Errorf("bbox = %v", chunks[0].BBox)
	}
}

func TestBlocksSingleTinyBlock(t *testing.T) {
	blocks := []core.OCRBlock{block("tiny", [4]float64{0, 0, 1, 1})}
	chunks := Blocks("s", testAsset, 2, blocks, Config{MaxChars: 150, MinChars: 50, OverlapBlocks: 1})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Id != "910ec7b7c9b60a61db98" {
		t.Errorf("chunk id = %s", chunks[0].Id)
	}
	if chunks[0].Text != "tiny" {
		t.Errorf("text = %q", chunks[0].Text)
	}
}

func TestBlocksEmpty(t *testing.T) {
	if chunks := Blocks("s", testAsset, 1, nil, DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestBlocksIdempotent(t *testing.T) {
	blocks := []core.OCRBlock{
		block(strings.Repeat("a", 300), [4]float64{0.0, 0.0, 1.0, 0.1}),
		block(strings.Repeat("b", 300), [4]float64{0.0, 0.2, 1.0, 0.3}),
		block(strings.Repeat("c", 300), [4]float64{0.0, 0.4, 1.0, 0.5}),
		block(strings.Repeat("d", 300), [4]float64{0.0, 0.6, 1.0, 0.7}),
	}
	config := Config{MaxChars: 500, MinChars: 100, OverlapBlocks: 1}

	one := Blocks("s", testAsset, 7, blocks, config)
	two := Blocks("s", testAsset, 7, blocks, config)
	if !reflect.DeepEqual(one, two) {
		t.Error("re-chunking identical input produced different chunks")
	}
	// Every block appears in at least one chunk.
	covered := make(map[int]bool)
	for _, c := range one {
		for i := c.StartBlock; i < c.EndBlock; i++ {
			covered[i] = true
		}
	}
	for i := range blocks {
		if !covered[i] {
			t.Errorf("block %d not covered by any chunk", i)
		}
	}
}

func TestChunkArtifactRoundTrip(t *testing.T) {
	blocks := []core.OCRBlock{
		block("alpha", [4]float64{0, 0, 1, 0.2}),
		block("beta", [4]float64{0, 0.3, 1, 0.5}),
	}
	chunks := Blocks("s", testAsset, 1, blocks, DefaultConfig())

	path := filepath.Join(t.TempDir(), "nested", "chunks.json")
	if err := WriteChunks(chunks, path); err != nil {
		t.Fatalf("WriteChunks failed: %v", err)
	}

	loaded, err := ReadChunks(path)
	if err != nil {
		t.Fatalf("ReadChunks failed: %v", err)
	}
	if !reflect.DeepEqual(chunks, loaded) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", chunks, loaded)
	}

	if _, err := ReadChunks(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing artifact")
	}
}

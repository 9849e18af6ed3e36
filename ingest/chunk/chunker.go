package chunk

import (
	"math"
	"sort"
	"strings"

	"github.com/poiesic/lectern/core"
)

// Default packing budgets.
const (
	DefaultMaxChars      = 1000
	DefaultMinChars      = 200
	DefaultOverlapBlocks = 1
)

// Config bounds chunk sizes in characters of block text.
type Config struct {
	// MaxChars is the soft upper budget. A chunk stops growing when the
	// next block would push it past this, unless it is still under
	// MinChars.
	MaxChars int

	// MinChars guards against degenerate tiny chunks. A chunk below this
	// keeps accumulating even past MaxChars.
	MinChars int

	// OverlapBlocks is how many trailing blocks of a chunk are re-included
	// at the start of the next one.
	OverlapBlocks int
}

// DefaultConfig returns the standard packing budgets.
func DefaultConfig() Config {
	return Config{
		MaxChars:      DefaultMaxChars,
		MinChars:      DefaultMinChars,
		OverlapBlocks: DefaultOverlapBlocks,
	}
}

// Blocks chunks one page's OCR blocks. The input order does not matter;
// blocks are first sorted into reading order. Deterministic: the same blocks
// and config always produce the same chunks.
func Blocks(subjectID, assetID string, pageNum int, blocks []core.OCRBlock, config Config) []core.Chunk {
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultMaxChars
	}
	if config.MinChars < 0 {
		config.MinChars = 0
	}
	if config.OverlapBlocks < 0 {
		config.OverlapBlocks = 0
	}

	ordered := readingOrder(blocks)

	var chunks []core.Chunk
	start := 0
	for start < len(ordered) {
		charCount := 0
		idx := start
		for idx < len(ordered) {
			blockLen := len(ordered[idx].Text)
			if idx > start && charCount+blockLen > config.MaxChars && charCount >= config.MinChars {
				break
			}
			charCount += blockLen
			idx++
		}

		chunks = append(chunks, build(subjectID, assetID, pageNum, ordered, start, idx))

		if idx >= len(ordered) {
			break
		}
		// Overlap re-includes trailing blocks but always advances.
		next := idx - config.OverlapBlocks
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// readingOrder sorts blocks top-to-bottom, then left-to-right, by
// bounding-box origin. The sort is stable so ties keep engine order.
func readingOrder(blocks []core.OCRBlock) []core.OCRBlock {
	ordered := make([]core.OCRBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].BBox[1] != ordered[j].BBox[1] {
			return ordered[i].BBox[1] < ordered[j].BBox[1]
		}
		return ordered[i].BBox[0] < ordered[j].BBox[0]
	})
	return ordered
}

// build assembles the chunk for blocks[start:end).
func build(subjectID, assetID string, pageNum int, blocks []core.OCRBlock, start, end int) core.Chunk {
	members := blocks[start:end]
	texts := make([]string, len(members))
	for i, b := range members {
		texts[i] = b.Text
	}
	text := strings.TrimSpace(strings.Join(texts, "\n"))

	return core.Chunk{
		Id:         core.ChunkID(assetID, pageNum, start, end),
		AssetId:    assetID,
		SubjectId:  subjectID,
		PageNum:    pageNum,
		StartBlock: start,
		EndBlock:   end,
		Text:       text,
		BBox:       unionBBox(members),
		CharCount:  len(text),
	}
}

func unionBBox(blocks []core.OCRBlock) [4]float64 {
	if len(blocks) == 0 {
		return [4]float64{}
	}
	u := blocks[0].BBox
	for _, b := range blocks[1:] {
		u[0] = math.Min(u[0], b.BBox[0])
		u[1] = math.Min(u[1], b.BBox[1])
		u[2] = math.Max(u[2], b.BBox[2])
		u[3] = math.Max(u[3], b.BBox[3])
	}
	return u
}

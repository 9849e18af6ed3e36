package core

import (
	"strconv"
	"time"
)

// Subject is a named collection of study assets.
type Subject struct {
	Id        string
	Name      string
	CreatedAt time.Time
	Metadata  map[string]string // Optional metadata (e.g., "term", "instructor")
}

// Asset is one uploaded source document belonging to a subject.
// It is immutable once stored; only its stage status changes.
type Asset struct {
	Id          string // hex(sha256(file bytes))[:AssetIDLen]
	SubjectId   string
	Filename    string // Original filename as uploaded
	StoragePath string // Absolute path of the stored raw file
	ContentHash string // Full sha256 hex of the file bytes, dedup key
	SizeBytes   int64
	MimeType    string
	CreatedAt   time.Time
	Metadata    map[string]string
}

// PageImage is one rendered raster page of an asset. Pages are 1-based.
type PageImage struct {
	AssetId string
	PageNum int
	Path    string
	Width   int
	Height  int
}

// OCRBlock is one positioned text region on a page.
// BBox is [x0, y0, x1, y1] in the engine's coordinate convention.
type OCRBlock struct {
	Text       string     `json:"text"`
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"confidence"`
}

// OCRPage is the normalized OCR output for one page, identical across engines.
type OCRPage struct {
	Page            int        `json:"page"`
	Engine          string     `json:"engine"`
	Blocks          []OCRBlock `json:"blocks"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	FallbackWarning string     `json:"fallback_warning,omitempty"`
}

// TextLen returns the total character count across all blocks.
func (p *OCRPage) TextLen() int {
	n := 0
	for _, b := range p.Blocks {
		n += len(b.Text)
	}
	return n
}

// AvgConfidence returns the mean block confidence, 0 when there are no blocks.
func (p *OCRPage) AvgConfidence() float64 {
	if len(p.Blocks) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range p.Blocks {
		sum += b.Confidence
	}
	return sum / float64(len(p.Blocks))
}

// OCRRecord is the per-page OCR summary row kept in the catalog.
// BlockPath points at the persisted OCRPage artifact.
type OCRRecord struct {
	AssetId       string
	PageNum       int
	Engine        string
	TextLen       int
	AvgConfidence float64
	NeedsCaption  bool
	BlockPath     string
}

// Chunk is a contiguous run of OCR blocks on one page, the atomic retrieval
// unit. Its Id is deterministic over (asset, page, block range) so
// re-chunking unchanged OCR output reproduces identical ids.
type Chunk struct {
	Id         string     `json:"chunk_id"`
	AssetId    string     `json:"asset_id"`
	SubjectId  string     `json:"subject_id"`
	PageNum    int        `json:"page_num"`
	StartBlock int        `json:"start_block"`
	EndBlock   int        `json:"end_block"` // Exclusive
	Text       string     `json:"text"`
	BBox       [4]float64 `json:"bbox"`
	CharCount  int        `json:"char_count"`
}

// Notes is one version of markdown study notes derived from an asset.
// Each version fully supersedes the prior one for retrieval purposes.
type Notes struct {
	Id        string
	SubjectId string
	AssetId   string
	Title     string
	Markdown  string
	Version   int
	WebURLs   []string
	CreatedAt time.Time
}

// SourceLabel is the display label attached to this version's index points.
func (n *Notes) SourceLabel() string {
	return n.Title + " (v" + strconv.Itoa(n.Version) + ")"
}

// NotesChunk is a section-sized slice of one Notes version.
type NotesChunk struct {
	Id           string
	NotesId      string
	SubjectId    string
	AssetId      string
	Version      int
	SectionTitle string
	Idx          int
	StartChar    int
	Text         string
}

package sqlite

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/poiesic/lectern/core"
)

type subjectRow struct {
	ID        string         `gorm:"column:id;primaryKey"`
	Name      string         `gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
}

func (subjectRow) TableName() string { return "subjects" }

type assetRow struct {
	ID          string         `gorm:"column:id;primaryKey"`
	SubjectID   string         `gorm:"column:subject_id;not null;index;index:idx_assets_subject_hash,priority:1"`
	Filename    string         `gorm:"column:filename;not null"`
	StoragePath string         `gorm:"column:storage_path;not null"`
	ContentHash string         `gorm:"column:content_hash;not null;index:idx_assets_subject_hash,priority:2"`
	SizeBytes   int64          `gorm:"column:size_bytes;not null"`
	MimeType    string         `gorm:"column:mime_type"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null"`
	Metadata    datatypes.JSON `gorm:"column:metadata"`
}

func (assetRow) TableName() string { return "assets" }

type statusRow struct {
	AssetID   string    `gorm:"column:asset_id;primaryKey"`
	Stage     string    `gorm:"column:stage;not null"`
	Message   string    `gorm:"column:message"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (statusRow) TableName() string { return "asset_index_status" }

type pageRow struct {
	AssetID string `gorm:"column:asset_id;primaryKey"`
	PageNum int    `gorm:"column:page_num;primaryKey"`
	Path    string `gorm:"column:path;not null"`
	Width   int    `gorm:"column:width"`
	Height  int    `gorm:"column:height"`
}

func (pageRow) TableName() string { return "asset_pages" }

type ocrRow struct {
	AssetID       string  `gorm:"column:asset_id;primaryKey"`
	PageNum       int     `gorm:"column:page_num;primaryKey"`
	Engine        string  `gorm:"column:engine"`
	TextLen       int     `gorm:"column:text_len;not null"`
	AvgConfidence float64 `gorm:"column:avg_confidence"`
	NeedsCaption  bool    `gorm:"column:needs_caption;not null"`
	BlockPath     string  `gorm:"column:block_path"`
}

func (ocrRow) TableName() string { return "asset_ocr_pages" }

type chunkRow struct {
	ChunkID    string  `gorm:"column:chunk_id;primaryKey"`
	AssetID    string  `gorm:"column:asset_id;not null;index;index:idx_chunks_asset_page,priority:1"`
	SubjectID  string  `gorm:"column:subject_id;not null;index"`
	PageNum    int     `gorm:"column:page_num;not null;index:idx_chunks_asset_page,priority:2"`
	StartBlock int     `gorm:"column:start_block;not null"`
	EndBlock   int     `gorm:"column:end_block;not null"`
	Text       string  `gorm:"column:text"`
	X0         float64 `gorm:"column:x0"`
	Y0         float64 `gorm:"column:y0"`
	X1         float64 `gorm:"column:x1"`
	Y1         float64 `gorm:"column:y1"`
	CharCount  int     `gorm:"column:char_count;not null"`
}

func (chunkRow) TableName() string { return "chunks" }

type notesRow struct {
	ID        string         `gorm:"column:id;primaryKey"`
	SubjectID string         `gorm:"column:subject_id;not null;index;index:idx_notes_subject_asset,priority:1"`
	AssetID   string         `gorm:"column:asset_id;not null;index;index:idx_notes_subject_asset,priority:2"`
	Title     string         `gorm:"column:title;not null"`
	Markdown  string         `gorm:"column:markdown"`
	Version   int            `gorm:"column:version;not null"`
	WebURLs   datatypes.JSON `gorm:"column:web_urls"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (notesRow) TableName() string { return "notes" }

type notesChunkRow struct {
	NotesChunkID string `gorm:"column:notes_chunk_id;primaryKey"`
	NotesID      string `gorm:"column:notes_id;not null;index"`
	SubjectID    string `gorm:"column:subject_id;not null;index"`
	AssetID      string `gorm:"column:asset_id;not null;index"`
	Version      int    `gorm:"column:version;not null"`
	SectionTitle string `gorm:"column:section_title"`
	Idx          int    `gorm:"column:idx;not null"`
	StartChar    int    `gorm:"column:start_char;not null"`
	Text         string `gorm:"column:text"`
}

func (notesChunkRow) TableName() string { return "notes_chunks" }

func metadataToJSON(m map[string]string) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

func metadataFromJSON(data datatypes.JSON) map[string]string {
	if len(data) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func urlsToJSON(urls []string) datatypes.JSON {
	if len(urls) == 0 {
		return nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil
	}
	return data
}

func urlsFromJSON(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil
	}
	return urls
}

func subjectToRow(s *core.Subject) *subjectRow {
	return &subjectRow{
		ID:        s.Id,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Metadata:  metadataToJSON(s.Metadata),
	}
}

func subjectFromRow(r *subjectRow) *core.Subject {
	return &core.Subject{
		Id:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		Metadata:  metadataFromJSON(r.Metadata),
	}
}

func assetToRow(a *core.Asset) *assetRow {
	return &assetRow{
		ID:          a.Id,
		SubjectID:   a.SubjectId,
		Filename:    a.Filename,
		StoragePath: a.StoragePath,
		ContentHash: a.ContentHash,
		SizeBytes:   a.SizeBytes,
		MimeType:    a.MimeType,
		CreatedAt:   a.CreatedAt,
		Metadata:    metadataToJSON(a.Metadata),
	}
}

func assetFromRow(r *assetRow) *core.Asset {
	return &core.Asset{
		Id:          r.ID,
		SubjectId:   r.SubjectID,
		Filename:    r.Filename,
		StoragePath: r.StoragePath,
		ContentHash: r.ContentHash,
		SizeBytes:   r.SizeBytes,
		MimeType:    r.MimeType,
		CreatedAt:   r.CreatedAt,
		Metadata:    metadataFromJSON(r.Metadata),
	}
}

func pageToRow(p *core.PageImage) *pageRow {
	return &pageRow{
		AssetID: p.AssetId,
		PageNum: p.PageNum,
		Path:    p.Path,
		Width:   p.Width,
		Height:  p.Height,
	}
}

func pageFromRow(r *pageRow) *core.PageImage {
	return &core.PageImage{
		AssetId: r.AssetID,
		PageNum: r.PageNum,
		Path:    r.Path,
		Width:   r.Width,
		Height:  r.Height,
	}
}

func ocrToRow(o *core.OCRRecord) *ocrRow {
	return &ocrRow{
		AssetID:       o.AssetId,
		PageNum:       o.PageNum,
		Engine:        o.Engine,
		TextLen:       o.TextLen,
		AvgConfidence: o.AvgConfidence,
		NeedsCaption:  o.NeedsCaption,
		BlockPath:     o.BlockPath,
	}
}

func ocrFromRow(r *ocrRow) *core.OCRRecord {
	return &core.OCRRecord{
		AssetId:       r.AssetID,
		PageNum:       r.PageNum,
		Engine:        r.Engine,
		TextLen:       r.TextLen,
		AvgConfidence: r.AvgConfidence,
		NeedsCaption:  r.NeedsCaption,
		BlockPath:     r.BlockPath,
	}
}

func chunkToRow(c *core.Chunk) *chunkRow {
	return &chunkRow{
		ChunkID:    c.Id,
		AssetID:    c.AssetId,
		SubjectID:  c.SubjectId,
		PageNum:    c.PageNum,
		StartBlock: c.StartBlock,
		EndBlock:   c.EndBlock,
		Text:       c.Text,
		X0:         c.BBox[0],
		Y0:         c.BBox[1],
		X1:         c.BBox[2],
		Y1:         c.BBox[3],
		CharCount:  c.CharCount,
	}
}

func chunkFromRow(r *chunkRow) *core.Chunk {
	return &core.Chunk{
		Id:         r.ChunkID,
		AssetId:    r.AssetID,
		SubjectId:  r.SubjectID,
		PageNum:    r.PageNum,
		StartBlock: r.StartBlock,
		EndBlock:   r.EndBlock,
		Text:       r.Text,
		BBox:       [4]float64{r.X0, r.Y0, r.X1, r.Y1},
		CharCount:  r.CharCount,
	}
}

func notesToRow(n *core.Notes) *notesRow {
	return &notesRow{
		ID:        n.Id,
		SubjectID: n.SubjectId,
		AssetID:   n.AssetId,
		Title:     n.Title,
		Markdown:  n.Markdown,
		Version:   n.Version,
		WebURLs:   urlsToJSON(n.WebURLs),
		CreatedAt: n.CreatedAt,
	}
}

func notesFromRow(r *notesRow) *core.Notes {
	return &core.Notes{
		Id:        r.ID,
		SubjectId: r.SubjectID,
		AssetId:   r.AssetID,
		Title:     r.Title,
		Markdown:  r.Markdown,
		Version:   r.Version,
		WebURLs:   urlsFromJSON(r.WebURLs),
		CreatedAt: r.CreatedAt,
	}
}

func notesChunkToRow(c *core.NotesChunk) *notesChunkRow {
	return &notesChunkRow{
		NotesChunkID: c.Id,
		NotesID:      c.NotesId,
		SubjectID:    c.SubjectId,
		AssetID:      c.AssetId,
		Version:      c.Version,
		SectionTitle: c.SectionTitle,
		Idx:          c.Idx,
		StartChar:    c.StartChar,
		Text:         c.Text,
	}
}

func notesChunkFromRow(r *notesChunkRow) *core.NotesChunk {
	return &core.NotesChunk{
		Id:           r.NotesChunkID,
		NotesId:      r.NotesID,
		SubjectId:    r.SubjectID,
		AssetId:      r.AssetID,
		Version:      r.Version,
		SectionTitle: r.SectionTitle,
		Idx:          r.Idx,
		StartChar:    r.StartChar,
		Text:         r.Text,
	}
}

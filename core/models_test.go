package core

import (
	"testing"
)

func TestOCRPage_TextLen(t *testing.T) {
	tests := []struct {
		name string
		page OCRPage
		want int
	}{
		{
			name: "empty page",
			page: OCRPage{Page: 1},
			want: 0,
		},
		{
			name: "single block",
			page: OCRPage{Blocks: []OCRBlock{{Text: "hello"}}},
			want: 5,
		},
		{
			name: "multiple blocks",
			page: OCRPage{Blocks: []OCRBlock{{Text: "hello"}, {Text: "world!"}}},
			want: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.TextLen(); got != tt.want {
				t.Errorf("TextLen() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOCRPage_AvgConfidence(t *testing.T) {
	page := OCRPage{Blocks: []OCRBlock{
		{Text: "a", Confidence: 0.9},
		{Text: "b", Confidence: 0.5},
	}}
	if got := page.AvgConfidence(); got != 0.7 {
		t.Errorf("AvgConfidence() = %v, want 0.7", got)
	}

	empty := OCRPage{}
	if got := empty.AvgConfidence(); got != 0 {
		t.Errorf("AvgConfidence() on empty page = %v, want 0", got)
	}
}

func TestNotes_SourceLabel(t *testing.T) {
	n := Notes{Title: "Photosynthesis", Version: 3}
	if got := n.SourceLabel(); got != "Photosynthesis (v3)" {
		t.Errorf("SourceLabel() = %q", got)
	}
}

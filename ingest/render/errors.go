package render

import "errors"

var (
	// ErrUnsupportedFormat is returned for source files no renderer handles.
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrRenderFailed is returned when rasterization or decoding fails.
	ErrRenderFailed = errors.New("render failed")

	// ErrNoPages is returned for documents with zero renderable pages.
	ErrNoPages = errors.New("document has no pages")
)

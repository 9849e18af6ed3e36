package ocr

import "errors"

var (
	// ErrUnknownEngine is returned for an unrecognized engine name.
	ErrUnknownEngine = errors.New("unknown ocr engine")

	// ErrOCRFailed is returned when an engine cannot process a page.
	ErrOCRFailed = errors.New("ocr failed")
)

package core

// Stage is a named checkpoint in the indexing pipeline's linear progression.
type Stage string

const (
	StageStored   Stage = "stored"
	StageRendered Stage = "rendered"
	StageOCRDone  Stage = "ocr_done"
	StageChunked  Stage = "chunked"
	StageEmbedded Stage = "embedded"
	StageIndexed  Stage = "indexed"

	// StageMissing marks an asset whose source file is absent. Terminal:
	// the pipeline short-circuits instead of consulting ShouldRun.
	StageMissing Stage = "missing"

	// StageFailed marks an asset whose last stage errored. Any target stage
	// re-runs from a failed asset.
	StageFailed Stage = "failed"
)

// StageOrder is the fixed total order of pipeline stages.
var StageOrder = []Stage{
	StageStored,
	StageRendered,
	StageOCRDone,
	StageChunked,
	StageEmbedded,
	StageIndexed,
}

// StageIndex returns a stage's position in StageOrder, or -1 when the stage
// is not part of the linear progression (unknown, missing, failed).
func StageIndex(s Stage) int {
	for i, candidate := range StageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ShouldRun reports whether the stage targeting `target` must run given the
// asset's current stage. It runs when the current stage is empty or unknown,
// when the asset previously failed, or when current precedes target in
// StageOrder. It never runs when current already covers target.
func ShouldRun(current, target Stage) bool {
	if current == "" || current == StageFailed {
		return true
	}
	ci := StageIndex(current)
	if ci < 0 {
		return true
	}
	ti := StageIndex(target)
	return ci < ti
}

// Terminal reports whether a stage ends processing outright.
func (s Stage) Terminal() bool {
	return s == StageMissing
}

// Valid reports whether s is one of the known stage names.
func (s Stage) Valid() bool {
	return StageIndex(s) >= 0 || s == StageMissing || s == StageFailed
}

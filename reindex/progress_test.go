package reindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerReportsAtInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 100)
	tracker.Start()

	tracker.Update(50)
	assert.Empty(t, buf.String(), "should stay quiet under the interval")

	tracker.Update(100)
	assert.Contains(t, buf.String(), "100/1000")
	assert.Contains(t, buf.String(), "10.0%")

	buf.Reset()
	tracker.Update(150)
	assert.Empty(t, buf.String(), "only 50 chunks since the last report")

	tracker.Update(300)
	assert.Contains(t, buf.String(), "300/1000")
}

func TestProgressTrackerFinish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)
	tracker.Start()

	tracker.Update(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should jump to the total")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "chunks/s")
	assert.Contains(t, output, "\n", "finish should end the progress line")
}

func TestProgressTrackerCapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)
	tracker.Start()

	tracker.Update(150)

	assert.Contains(t, buf.String(), "100/100", "should not report beyond the total")
}

func TestProgressTrackerZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 10)
	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0 (0.0%)")
}

func TestProgressTrackerBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Update(10)
	tracker.Finish()

	assert.Empty(t, buf.String(), "should write nothing before Start")
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTrackerElapsed(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)
	tracker.Start()

	time.Sleep(5 * time.Millisecond)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

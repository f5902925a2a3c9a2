package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("scrape status %d", rec.Code)
	}
	return rec.Body.String()
}

func TestCollectorCountsFrames(t *testing.T) {
	c := NewCollector("test_cam")

	c.FrameCaptured(5*time.Millisecond, 1024)
	c.FrameCaptured(7*time.Millisecond, 2048)
	c.FrameDropped()
	c.CaptureError(errors.New("dequeue timed out"))
	c.StreamState(true)

	body := scrape(t, c)
	for _, want := range []string{
		`camnode_frames_captured_total{camera="test_cam"} 2`,
		`camnode_frames_dropped_total{camera="test_cam"} 1`,
		`camnode_capture_errors_total{camera="test_cam"} 1`,
		`camnode_frame_bytes{camera="test_cam"} 2048`,
		`camnode_streaming{camera="test_cam"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestCollectorStreamStateOff(t *testing.T) {
	c := NewCollector("test_cam")
	c.StreamState(true)
	c.StreamState(false)

	if !strings.Contains(scrape(t, c), `camnode_streaming{camera="test_cam"} 0`) {
		t.Error("streaming gauge did not return to 0")
	}
}

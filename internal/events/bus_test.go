package events

import (
	"errors"
	"testing"
	"time"

	"github.com/camnode/camnode/internal/camera"
	"github.com/camnode/camnode/internal/v4l2"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameEvent, 1)

	unsub := bus.Subscribe(func(e FrameEvent) {
		received <- e
	})
	defer unsub()

	event := FrameEvent{
		Camera:   "test_cam",
		Data:     []byte{1, 2, 3},
		Width:    640,
		Height:   480,
		FourCC:   v4l2.PixFmtYUYV,
		Sequence: 7,
	}
	bus.Publish(event)

	got := <-received
	if got.Camera != event.Camera || got.Sequence != 7 {
		t.Errorf("got %+v", got)
	}
	if len(got.Data) != 3 {
		t.Errorf("data = %v", got.Data)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan StreamStateEvent, 1)
	received2 := make(chan StreamStateEvent, 1)

	unsub1 := bus.Subscribe(func(e StreamStateEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e StreamStateEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(StreamStateEvent{Camera: "test_cam", Streaming: true})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})

	bus.Publish(CaptureErrorEvent{Camera: "cam_a"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{Camera: "cam_b"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestFrameSinkPublishes(t *testing.T) {
	bus := New()
	received := make(chan FrameEvent, 1)
	unsub := bus.Subscribe(func(e FrameEvent) {
		received <- e
	})
	defer unsub()

	sink := NewFrameSink(bus, "test_cam")
	err := sink.Publish(camera.Frame{
		Data:      []byte{9, 9},
		Width:     2,
		Height:    1,
		Stride:    4,
		FourCC:    v4l2.PixFmtYUYV,
		Sequence:  3,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-received:
		if e.Camera != "test_cam" || e.Sequence != 3 || e.Width != 2 {
			t.Errorf("got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("frame event never arrived")
	}
}

type recordingStats struct {
	captured int
	dropped  int
	errs     []string
}

func (s *recordingStats) FrameCaptured(time.Duration, int) { s.captured++ }
func (s *recordingStats) FrameDropped()                    { s.dropped++ }
func (s *recordingStats) CaptureError(err error)           { s.errs = append(s.errs, err.Error()) }

func TestStatsSinkPublishesCaptureErrors(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)
	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})
	defer unsub()

	inner := &recordingStats{}
	sink := NewStatsSink(bus, "test_cam", inner)

	// Plain accounting passes straight through without bus traffic.
	sink.FrameCaptured(5*time.Millisecond, 1024)
	sink.FrameDropped()
	if inner.captured != 1 || inner.dropped != 1 {
		t.Errorf("inner stats = %+v", inner)
	}

	sink.CaptureError(errors.New("dequeuing buffer: input/output error"))

	select {
	case e := <-received:
		if e.Camera != "test_cam" {
			t.Errorf("camera = %q", e.Camera)
		}
		if e.Error != "dequeuing buffer: input/output error" {
			t.Errorf("error = %q", e.Error)
		}
		if e.Timestamp.IsZero() {
			t.Error("event has no timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("capture error event never arrived")
	}

	if len(inner.errs) != 1 {
		t.Errorf("inner saw %d errors, want 1", len(inner.errs))
	}
}

package feed

import (
	"fmt"
	"testing"

	"github.com/steveyegge/samara/internal/stream"
)

func TestAddEventCapsFeed(t *testing.T) {
	m := NewModel()
	for i := 0; i < maxEvents+50; i++ {
		m.addEvent(Event{Surface: stream.SurfaceCLI, Summary: fmt.Sprintf("event %d", i)})
	}

	if len(m.events) != maxEvents {
		t.Fatalf("len(events) = %d, want %d", len(m.events), maxEvents)
	}
	if got := m.events[0].Summary; got != "event 50" {
		t.Errorf("oldest kept event = %q, want %q", got, "event 50")
	}
}

func TestCycleFilter(t *testing.T) {
	m := NewModel()
	m.addEvent(Event{Surface: stream.SurfaceSense, Summary: "battery"})
	m.addEvent(Event{Surface: stream.SurfaceCLI, Summary: "session"})

	// Canonical order puts cli before sense regardless of arrival order.
	m.cycleFilter()
	if m.filter != stream.SurfaceCLI {
		t.Fatalf("filter = %q, want %q", m.filter, stream.SurfaceCLI)
	}
	m.cycleFilter()
	if m.filter != stream.SurfaceSense {
		t.Fatalf("filter = %q, want %q", m.filter, stream.SurfaceSense)
	}
	m.cycleFilter()
	if m.filter != "" {
		t.Fatalf("filter = %q, want everything after the last surface", m.filter)
	}
}

func TestCycleFilterNoEvents(t *testing.T) {
	m := NewModel()
	m.cycleFilter()
	if m.filter != "" {
		t.Errorf("filter = %q, want empty with no events", m.filter)
	}
}

func TestVisibleAppliesFilter(t *testing.T) {
	m := NewModel()
	m.addEvent(Event{Surface: stream.SurfaceCLI, Summary: "one"})
	m.addEvent(Event{Surface: stream.SurfaceSense, Summary: "two"})
	m.addEvent(Event{Surface: stream.SurfaceCLI, Summary: "three"})

	if got := len(m.visible()); got != 3 {
		t.Fatalf("visible() with no filter = %d events, want 3", got)
	}

	m.filter = stream.SurfaceCLI
	vis := m.visible()
	if len(vis) != 2 {
		t.Fatalf("visible() with cli filter = %d events, want 2", len(vis))
	}
	for _, e := range vis {
		if e.Surface != stream.SurfaceCLI {
			t.Errorf("visible event surface = %q, want %q", e.Surface, stream.SurfaceCLI)
		}
	}
}

package geo

import (
	"math/rand"
	"testing"

	"github.com/airflowfield/dashboard/internal/backend"
)

func TestCenterEmpty(t *testing.T) {
	if _, ok := Center(nil); ok {
		t.Fatal("empty input must not produce a center")
	}
}

func TestCenterMean(t *testing.T) {
	c, ok := Center([]Point{{Lat: 40, Lng: -4}, {Lat: 42, Lng: -2}})
	if !ok || c.Lat != 41 || c.Lng != -3 {
		t.Fatalf("unexpected center %+v", c)
	}
}

func TestCenterWithinBoundingBox(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 500; round++ {
		points := make([]Point, 1+r.Intn(20))
		minLat, maxLat := 90.0, -90.0
		minLng, maxLng := 180.0, -180.0
		for i := range points {
			p := Point{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
			points[i] = p
			minLat, maxLat = min(minLat, p.Lat), max(maxLat, p.Lat)
			minLng, maxLng = min(minLng, p.Lng), max(maxLng, p.Lng)
		}
		c, ok := Center(points)
		if !ok {
			t.Fatalf("round %d: no center", round)
		}
		const eps = 1e-9
		if c.Lat < minLat-eps || c.Lat > maxLat+eps || c.Lng < minLng-eps || c.Lng > maxLng+eps {
			t.Fatalf("round %d: center %+v outside box", round, c)
		}
	}
}

func TestNewViewColorsAndPlaceholder(t *testing.T) {
	if v := NewView(nil, true); !v.Empty || v.Center != nil || len(v.Markers) != 0 {
		t.Fatalf("empty list should render placeholder, got %+v", v)
	}

	works := []backend.Work{
		{ID: "1", Status: backend.StatusPending, Latitude: 1, Longitude: 1},
		{ID: "2", Status: backend.StatusInProgress, Latitude: 3, Longitude: 3},
		{ID: "3", Status: backend.StatusCompleted, Latitude: 5, Longitude: 5},
		{ID: "4", Status: "cancelado", Latitude: 7, Longitude: 7},
	}
	v := NewView(works, false)
	want := []string{ColorPending, ColorInProgress, ColorCompleted, ColorOther}
	for i, m := range v.Markers {
		if m.Color != want[i] {
			t.Errorf("marker %s: got %s want %s", m.ID, m.Color, want[i])
		}
	}
	if v.Center == nil || v.Center.Lat != 4 || v.Center.Lng != 4 {
		t.Fatalf("unexpected center %+v", v.Center)
	}
}

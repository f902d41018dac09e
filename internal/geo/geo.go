// Package geo builds the map model of a work list.
package geo

import (
	"fmt"

	"github.com/airflowfield/dashboard/internal/backend"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Center returns the arithmetic mean of the points. It reports false for an empty
// input, in which case no map should be initialized.
func Center(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Lat
		sumLng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: sumLat / n, Lng: sumLng / n}, true
}

// Marker colors by work status.
const (
	ColorPending    = "red"
	ColorInProgress = "blue"
	ColorCompleted  = "green"
	ColorOther      = "gray"
)

// StatusColor maps a work status to its marker color.
func StatusColor(status string) string {
	switch status {
	case backend.StatusPending:
		return ColorPending
	case backend.StatusInProgress:
		return ColorInProgress
	case backend.StatusCompleted:
		return ColorCompleted
	}
	return ColorOther
}

type Marker struct {
	ID     string `json:"id"`
	Point  Point  `json:"point"`
	Color  string `json:"color"`
	Popup  string `json:"popup"`
	Status string `json:"status"`
}

// View is what the browser needs to draw the map. Center is nil when Empty.
type View struct {
	Empty   bool     `json:"empty"`
	Center  *Point   `json:"center,omitempty"`
	Zoom    int      `json:"zoom"`
	Animate bool     `json:"animate"`
	Markers []Marker `json:"markers"`
}

const defaultZoom = 12

// NewView builds the map for the given works; it is recomputed for every list shown,
// so the map recenters whenever the filtered list changes.
func NewView(works []backend.Work, animate bool) View {
	view := View{Empty: len(works) == 0, Zoom: defaultZoom, Animate: animate, Markers: []Marker{}}
	if view.Empty {
		return view
	}

	points := make([]Point, 0, len(works))
	for _, w := range works {
		p := Point{Lat: float64(w.Latitude), Lng: float64(w.Longitude)}
		points = append(points, p)
		view.Markers = append(view.Markers, Marker{
			ID:     w.ID.String(),
			Point:  p,
			Color:  StatusColor(w.Status),
			Popup:  fmt.Sprintf("%s\n%s\n%s", w.Title, w.Address, w.Status),
			Status: w.Status,
		})
	}
	if center, ok := Center(points); ok {
		view.Center = &center
	}
	return view
}

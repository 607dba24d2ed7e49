package vessel

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	gpxNamespace = "http://www.topografix.com/GPX/1/1"
	gpxCreator   = "go-vessel-simulator"

	// gpxFlushEvery is the number of new fixes that triggers a rewrite
	gpxFlushEvery = 10
)

// GPX is the subset of a GPX 1.1 document the simulator reads and writes:
// one planned route and one track of recorded fixes.
type GPX struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Routes  []Route  `xml:"rte"`
	Track   Track    `xml:"trk"`
}

type Route struct {
	Name   string       `xml:"name"`
	Points []RoutePoint `xml:"rtept"`
}

type RoutePoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Name string  `xml:"name,omitempty"`
}

type Track struct {
	Name    string  `xml:"name"`
	Segment Segment `xml:"trkseg"`
}

type Segment struct {
	Points []TrackPoint `xml:"trkpt"`
}

type TrackPoint struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Time time.Time `xml:"time"`
}

// coordinates returns the route when present, the track otherwise
func (g *GPX) coordinates() []Coordinate {
	var points []Coordinate
	if len(g.Routes) > 0 && len(g.Routes[0].Points) > 0 {
		for _, p := range g.Routes[0].Points {
			points = append(points, Coordinate{Lat: p.Lat, Lng: p.Lon})
		}
		return points
	}
	for _, p := range g.Track.Segment.Points {
		points = append(points, Coordinate{Lat: p.Lat, Lng: p.Lon})
	}
	return points
}

// GPXWriter records the track of one run. After every flush the file holds a
// complete document.
type GPXWriter struct {
	path    string
	file    *os.File
	doc     GPX
	pending int
	buf     bytes.Buffer
}

// NewGPXWriter creates (or truncates) the track file at path
func NewGPXWriter(path string) (*GPXWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create GPX file %s: %w", path, err)
	}

	return &GPXWriter{
		path: path,
		file: file,
		doc: GPX{
			Version: "1.1",
			Creator: gpxCreator,
			Xmlns:   gpxNamespace,
			Track:   Track{Name: "Vessel Track"},
		},
	}, nil
}

// Path returns the file the track is written to
func (w *GPXWriter) Path() string {
	return w.path
}

// SetRoute stores the planned leg as a two-point route
func (w *GPXWriter) SetRoute(start, end Coordinate) {
	w.doc.Routes = []Route{{
		Name: "Planned Leg",
		Points: []RoutePoint{
			{Lat: start.Lat, Lon: start.Lng, Name: "Start"},
			{Lat: end.Lat, Lon: end.Lng, Name: "End"},
		},
	}}
}

// Record appends a fix, flushing once enough fixes are pending
func (w *GPXWriter) Record(position Coordinate, at time.Time) error {
	w.doc.Track.Segment.Points = append(w.doc.Track.Segment.Points, TrackPoint{
		Lat:  position.Lat,
		Lon:  position.Lng,
		Time: at.UTC(),
	})
	w.pending++
	if w.pending < gpxFlushEvery {
		return nil
	}
	return w.Flush()
}

// Len returns the number of recorded fixes
func (w *GPXWriter) Len() int {
	return len(w.doc.Track.Segment.Points)
}

// Flush replaces the file content with the current document
func (w *GPXWriter) Flush() error {
	if w.file == nil {
		return os.ErrClosed
	}

	w.buf.Reset()
	w.buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&w.buf)
	enc.Indent("", "  ")
	if err := enc.Encode(&w.doc); err != nil {
		return fmt.Errorf("encode GPX document: %w", err)
	}

	if _, err := w.file.WriteAt(w.buf.Bytes(), 0); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	if err := w.file.Truncate(int64(w.buf.Len())); err != nil {
		return fmt.Errorf("truncate %s: %w", w.path, err)
	}
	w.pending = 0
	return nil
}

// Close flushes the final document and closes the file. Later calls are no-ops.
func (w *GPXWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.Flush()
	if err == nil {
		err = w.file.Sync()
	}
	err = errors.Join(err, w.file.Close())
	w.file = nil
	return err
}

// ReadGPXFile returns the points of a GPX file. Route points win over track
// points.
func ReadGPXFile(path string) ([]Coordinate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read GPX file %s: %w", path, err)
	}

	var doc GPX
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse GPX file %s: %w", path, err)
	}

	points := doc.coordinates()
	if len(points) == 0 {
		return nil, fmt.Errorf("no route or track points in GPX file %s", path)
	}
	return points, nil
}

// ReadLegFile returns the first and last point of a GPX file as the start
// and end of a straight leg
func ReadLegFile(path string) (Coordinate, Coordinate, error) {
	points, err := ReadGPXFile(path)
	if err != nil {
		return Coordinate{}, Coordinate{}, err
	}
	if len(points) < 2 {
		return Coordinate{}, Coordinate{}, fmt.Errorf("GPX file %s needs at least two points, found %d", path, len(points))
	}
	return points[0], points[len(points)-1], nil
}

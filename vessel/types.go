package vessel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParseCoordinate parses the "lat, lng" text form of a coordinate
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q: expected \"lat, lng\"", ErrInvalidCoordinate, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, strings.TrimSpace(parts[0]))
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, strings.TrimSpace(parts[1]))
	}

	c := Coordinate{Lat: lat, Lng: lng}
	if !c.IsFinite() {
		return Coordinate{}, fmt.Errorf("%w: %q is not finite", ErrInvalidCoordinate, s)
	}
	return c, nil
}

// String formats the coordinate the same way ParseCoordinate reads it
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Set implements flag.Value
func (c *Coordinate) Set(s string) error {
	parsed, err := ParseCoordinate(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalJSON accepts either {"lat":..,"lng":..} or the "lat, lng" text form
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		return c.Set(text)
	}

	type plain Coordinate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Coordinate(p)
	return nil
}

// IsFinite reports whether both components are real numbers
func (c Coordinate) IsFinite() bool {
	return isFinite(c.Lat) && isFinite(c.Lng)
}

// Parameters are the inputs of one simulation run
type Parameters struct {
	Start         Coordinate `json:"start"`
	End           Coordinate `json:"end"`
	SpeedKmH      float64    `json:"speed_kmh"`
	RefreshRateHz float64    `json:"refresh_rate_hz"`
}

// Phase is the lifecycle position of a simulation run
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseCompleted
	PhaseCancelled
)

var phaseNames = map[Phase]string{
	PhaseIdle:      "idle",
	PhaseRunning:   "running",
	PhaseCompleted: "completed",
	PhaseCancelled: "cancelled",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets phases appear by name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText reads a phase by name
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// State is the mutable part of a run, advanced once per tick
type State struct {
	Position       Coordinate `json:"position"`
	HeadingDegrees float64    `json:"heading_degrees"`
	StepIndex      int        `json:"step_index"`
	TotalSteps     float64    `json:"total_steps"`
	Ticks          int        `json:"ticks"`
	Phase          Phase      `json:"phase"`
}

// Update is emitted once per tick
type Update struct {
	Step           int        `json:"step"`
	Position       Coordinate `json:"position"`
	HeadingDegrees float64    `json:"heading_degrees"`
	CourseDegrees  float64    `json:"course_degrees"`
	SpeedKmH       float64    `json:"speed_kmh"`
	Arrived        bool       `json:"arrived,omitempty"` // final tick placed exactly on the end point
	Timestamp      time.Time  `json:"timestamp"`
}

// Outcome describes how a run ended
type Outcome struct {
	Phase   Phase         `json:"phase"`
	Ticks   int           `json:"ticks"` // updates actually emitted
	Elapsed time.Duration `json:"elapsed"`
}

// Status represents the current simulator status
type Status struct {
	Running     bool          `json:"running"`
	StartTime   time.Time     `json:"start_time,omitempty"`
	ElapsedTime time.Duration `json:"elapsed_time"`
	State       State         `json:"state"`
	Plan        Plan          `json:"plan"`
	Config      Config        `json:"config"`
}

// NMEAData bundles the sentences generated for one update
type NMEAData struct {
	Sentences []string  `json:"sentences"`
	Update    Update    `json:"update"`
	Timestamp time.Time `json:"timestamp"`
}

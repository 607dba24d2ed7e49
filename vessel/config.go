package vessel

import "math"

// Config holds all configuration options for the vessel simulator
type Config struct {
	Start         Coordinate `json:"start"`
	End           Coordinate `json:"end"`
	SpeedKmH      float64    `json:"speed_kmh"`
	RefreshRateHz float64    `json:"refresh_rate_hz"`
	SnapToEnd     bool       `json:"snap_to_end"` // emit one extra tick exactly at End
	SerialPort    string     `json:"serial_port,omitempty"`
	BaudRate      int        `json:"baud_rate"`
	Quiet         bool       `json:"quiet"`
	GPXEnabled    bool       `json:"gpx_enabled"`
	GPXFile       string     `json:"gpx_file,omitempty"` // generated track filename
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Start:         Coordinate{Lat: 22.1696, Lng: 91.4996}, // Kutubdia channel
		End:           Coordinate{Lat: 22.2637, Lng: 91.7159},
		SpeedKmH:      20,
		RefreshRateHz: 2,
		SnapToEnd:     false,
		BaudRate:      9600,
		Quiet:         false,
		GPXEnabled:    false,
	}
}

// Parameters extracts the engine inputs from the configuration
func (c Config) Parameters() Parameters {
	return Parameters{
		Start:         c.Start,
		End:           c.End,
		SpeedKmH:      c.SpeedKmH,
		RefreshRateHz: c.RefreshRateHz,
	}
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if !c.Start.IsFinite() || !c.End.IsFinite() {
		return ErrInvalidCoordinate
	}
	if !isFinite(c.SpeedKmH) || c.SpeedKmH <= 0 {
		return ErrInvalidSpeed
	}
	if !isFinite(c.RefreshRateHz) || c.RefreshRateHz <= 0 {
		return ErrInvalidRefreshRate
	}
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

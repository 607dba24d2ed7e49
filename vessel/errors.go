package vessel

import "errors"

// Common errors returned by the vessel simulator
var (
	ErrInvalidCoordinate       = errors.New("coordinate must be a finite \"lat, lng\" pair")
	ErrInvalidSpeed            = errors.New("speed must be a positive number of km/h")
	ErrInvalidRefreshRate      = errors.New("refresh rate must be a positive number of Hz")
	ErrInvalidBaudRate         = errors.New("baud rate must be positive")
	ErrDegeneratePlan          = errors.New("plan has a non-finite step count")
	ErrSimulatorNotRunning     = errors.New("simulator is not running")
	ErrSimulatorAlreadyRunning = errors.New("simulator is already running")
)

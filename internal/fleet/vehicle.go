// Package fleet holds the vehicle registry and the rental state machine.
package fleet

import "time"

// Status is the lifecycle state of a vehicle.
type Status string

const (
	StatusAvailable Status = "available"
	StatusInUse     Status = "in_use"
	StatusOffline   Status = "offline"
	// StatusLocked is self-reported by the device independent of the
	// rental flow.
	StatusLocked Status = "locked"
)

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusOffline, StatusLocked:
		return true
	}
	return false
}

// Vehicle is the authoritative record for one scooter. The registry is
// the single writer; everything handed out of the registry is a copy.
type Vehicle struct {
	// ID is assigned by the registry at registration and is stable for
	// the life of the process (and across restarts via the store).
	ID int64

	// IMEI is the device hardware identifier, unique and immutable.
	IMEI string

	Lat float64
	Lng float64

	// Battery is the charge level in integer percent, 0-100.
	Battery int

	// Speed is in km/h.
	Speed float64

	// Odometer is the cumulative distance in meters. Never decreases.
	Odometer int64

	Status Status

	// CurrentUserID references the active renter, empty when idle.
	CurrentUserID string

	// LastSeen is the time of the newest accepted telemetry, taken
	// from the device clock when the record carries a timestamp.
	LastSeen time.Time
}

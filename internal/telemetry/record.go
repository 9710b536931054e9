// Package telemetry maps raw device payloads onto canonical records.
package telemetry

import "time"

// Record is a normalized snapshot of one inbound device payload.
// All fields except Ident are optional; a nil field means the device
// did not report it, never that the value is zero.
type Record struct {
	// Ident is the device identifier (IMEI) the payload resolved to.
	Ident string

	Latitude  *float64
	Longitude *float64

	// Battery is the charge level in integer percent.
	Battery *int

	// Speed is in km/h.
	Speed *float64

	// Odometer is the cumulative distance in meters. Devices report
	// kilometers on the wire; Normalize converts.
	Odometer *int64

	// Locked reports the physical lock state, Ignition the ignition
	// circuit. Both arrive as 0/1 flags on most firmware generations.
	Locked   *bool
	Ignition *bool

	// Timestamp is the device-reported time of the reading.
	Timestamp *time.Time
}

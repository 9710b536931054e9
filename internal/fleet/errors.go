package fleet

import "errors"

var (
	// ErrNotFound is returned when an identifier resolves to no vehicle.
	ErrNotFound = errors.New("vehicle not found")

	// ErrExists is returned when registering an IMEI twice.
	ErrExists = errors.New("vehicle already registered")

	// ErrInvalidStatus is returned for a status outside the enum.
	ErrInvalidStatus = errors.New("invalid vehicle status")

	// ErrPreconditionFailed is the registry's compare-and-swap miss:
	// the current status did not match the expected one. Callers map it
	// to the public rental errors.
	ErrPreconditionFailed = errors.New("status precondition failed")

	// ErrVehicleUnavailable is returned when a rental start loses the
	// race or targets a vehicle that was never available.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")

	// ErrVehicleNotInUse is returned when a rental end targets a
	// vehicle with no rental in progress.
	ErrVehicleNotInUse = errors.New("vehicle not in use")
)

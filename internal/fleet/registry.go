package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/voltride/fleet-api/internal/telemetry"
)

// Mirror persists vehicle snapshots outside the process. Mirror writes
// are best effort and never gate an in-memory commit.
type Mirror interface {
	SaveVehicle(ctx context.Context, v Vehicle) error
}

// entry pairs one vehicle with its own mutex so writers to the same
// vehicle serialize without blocking the rest of the fleet.
type entry struct {
	mu sync.Mutex
	v  Vehicle

	// lastDeviceTS is the newest device-reported timestamp accepted so
	// far. Staleness is judged device-clock against device-clock;
	// server-assigned LastSeen values never reject telemetry.
	lastDeviceTS time.Time
}

// Registry is the authoritative map of device identity to vehicle state
// and the single writer of vehicle records.
type Registry struct {
	logger  zerolog.Logger
	mirror  Mirror
	updates chan Vehicle
	now     func() time.Time

	// mu guards map membership only; per-vehicle state is guarded by
	// the entry mutex.
	mu     sync.RWMutex
	byIMEI map[string]*entry
	nextID int64
}

// NewRegistry creates an empty registry. mirror may be nil for a purely
// in-memory deployment.
func NewRegistry(logger zerolog.Logger, mirror Mirror) *Registry {
	return &Registry{
		logger:  logger.With().Str("component", "registry").Logger(),
		mirror:  mirror,
		updates: make(chan Vehicle, 256),
		now:     time.Now,
		byIMEI:  make(map[string]*entry),
	}
}

// Register adds a vehicle to the fleet and assigns its ID. A zero
// status defaults to available.
func (r *Registry) Register(v Vehicle) (Vehicle, error) {
	if v.Status == "" {
		v.Status = StatusAvailable
	}
	if !v.Status.Valid() {
		return Vehicle{}, ErrInvalidStatus
	}

	r.mu.Lock()
	if _, ok := r.byIMEI[v.IMEI]; ok {
		r.mu.Unlock()
		return Vehicle{}, ErrExists
	}
	r.nextID++
	v.ID = r.nextID
	if v.LastSeen.IsZero() {
		v.LastSeen = r.now().UTC()
	}
	r.byIMEI[v.IMEI] = &entry{v: v}
	r.mu.Unlock()

	r.enqueueMirror(v)
	return v, nil
}

// Load seeds the registry from durable snapshots. Meant for warm-up
// before the server starts accepting requests.
func (r *Registry) Load(vehicles []Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range vehicles {
		if !v.Status.Valid() {
			r.logger.Warn().Str("imei", v.IMEI).Str("status", string(v.Status)).Msg("skipping stored vehicle with unknown status")
			continue
		}
		r.byIMEI[v.IMEI] = &entry{v: v}
		if v.ID > r.nextID {
			r.nextID = v.ID
		}
	}
}

// Find returns a snapshot of the vehicle with the given IMEI.
func (r *Registry) Find(imei string) (Vehicle, error) {
	e := r.lookup(imei)
	if e == nil {
		return Vehicle{}, ErrNotFound
	}
	e.mu.Lock()
	v := e.v
	e.mu.Unlock()
	return v, nil
}

// ApplyTelemetry overwrites only the fields present in rec and bumps
// LastSeen. The whole update commits atomically against the vehicle's
// current state: concurrent callers for the same IMEI serialize, and
// readers observe either the pre- or post-update snapshot.
//
// Records carrying a device timestamp older than the newest accepted
// one are dropped without touching any field; the current snapshot is
// returned.
func (r *Registry) ApplyTelemetry(imei string, rec *telemetry.Record) (Vehicle, error) {
	e := r.lookup(imei)
	if e == nil {
		return Vehicle{}, ErrNotFound
	}

	e.mu.Lock()
	if rec.Timestamp != nil && rec.Timestamp.Before(e.lastDeviceTS) {
		v := e.v
		e.mu.Unlock()
		r.logger.Debug().Str("imei", imei).Time("recordTime", *rec.Timestamp).Msg("dropping stale telemetry")
		return v, nil
	}
	if rec.Latitude != nil {
		e.v.Lat = *rec.Latitude
	}
	if rec.Longitude != nil {
		e.v.Lng = *rec.Longitude
	}
	if rec.Battery != nil {
		e.v.Battery = *rec.Battery
	}
	if rec.Speed != nil {
		e.v.Speed = *rec.Speed
	}
	// Odometer is monotonic; a lower reading is a device hiccup.
	if rec.Odometer != nil && *rec.Odometer > e.v.Odometer {
		e.v.Odometer = *rec.Odometer
	}
	if rec.Timestamp != nil {
		e.lastDeviceTS = rec.Timestamp.UTC()
		e.v.LastSeen = rec.Timestamp.UTC()
	} else {
		e.v.LastSeen = r.now().UTC()
	}
	v := e.v
	e.mu.Unlock()

	r.enqueueMirror(v)
	return v, nil
}

// TransitionStatus is the compare-and-swap primitive for status
// changes. With a non-nil fromExpected the transition only commits when
// the current status matches, otherwise ErrPreconditionFailed is
// returned and nothing changes. A nil fromExpected forces the
// transition; that path is reserved for device-truth updates.
//
// renter applies only when to is StatusInUse; leaving in_use always
// clears the renter reference.
func (r *Registry) TransitionStatus(imei string, fromExpected *Status, to Status, renter string) (Vehicle, error) {
	if !to.Valid() {
		return Vehicle{}, ErrInvalidStatus
	}
	e := r.lookup(imei)
	if e == nil {
		return Vehicle{}, ErrNotFound
	}

	e.mu.Lock()
	if fromExpected != nil && e.v.Status != *fromExpected {
		e.mu.Unlock()
		return Vehicle{}, ErrPreconditionFailed
	}
	e.v.Status = to
	if to == StatusInUse {
		e.v.CurrentUserID = renter
	} else {
		e.v.CurrentUserID = ""
	}
	v := e.v
	e.mu.Unlock()

	r.enqueueMirror(v)
	return v, nil
}

// Snapshot returns a copy of every vehicle, ordered by ID.
func (r *Registry) Snapshot() []Vehicle {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.byIMEI))
	for _, e := range r.byIMEI {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	vehicles := make([]Vehicle, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		vehicles = append(vehicles, e.v)
		e.mu.Unlock()
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })
	return vehicles
}

// RunMirror drains the update queue into the durable store until ctx is
// canceled. Store failures are logged and dropped.
func (r *Registry) RunMirror(ctx context.Context) error {
	if r.mirror == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-r.updates:
			if err := r.mirror.SaveVehicle(ctx, v); err != nil {
				r.logger.Warn().Err(err).Str("imei", v.IMEI).Msg("failed to mirror vehicle snapshot")
			}
		}
	}
}

func (r *Registry) lookup(imei string) *entry {
	r.mu.RLock()
	e := r.byIMEI[imei]
	r.mu.RUnlock()
	return e
}

func (r *Registry) enqueueMirror(v Vehicle) {
	if r.mirror == nil {
		return
	}
	select {
	case r.updates <- v:
	default:
		r.logger.Warn().Str("imei", v.IMEI).Msg("mirror queue full, dropping snapshot")
	}
}

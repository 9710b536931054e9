package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/voltride/fleet-api/internal/telemetry"
)

// Commands sent to the device network.
const (
	CommandUnlock = "unlock"
	CommandLock   = "lock"
)

const (
	eventRent   = "rent"
	eventReturn = "return"
)

// rentalEvents is the legal transition table for the rental flow.
var rentalEvents = fsm.Events{
	{Name: eventRent, Src: []string{string(StatusAvailable)}, Dst: string(StatusInUse)},
	{Name: eventReturn, Src: []string{string(StatusInUse)}, Dst: string(StatusAvailable)},
}

// nextStatus runs event against the machine seeded at from and returns
// the destination status. fsm.InvalidEventError means the transition is
// not legal from the current state.
func nextStatus(ctx context.Context, from Status, event string) (Status, error) {
	m := fsm.NewFSM(string(from), rentalEvents, nil)
	if err := m.Event(ctx, event); err != nil {
		return "", err
	}
	return Status(m.Current()), nil
}

// Dispatcher delivers a command to the device network.
type Dispatcher interface {
	Send(ctx context.Context, deviceID, command string) error
}

// CommandOutcome is the recorded result of one dispatch attempt.
type CommandOutcome struct {
	ID      string    `json:"id"`
	IMEI    string    `json:"imei"`
	Command string    `json:"command"`
	SentAt  time.Time `json:"sent_at"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}

// RentalResult is returned from a successful rental transition. Warning
// is set when the command dispatch failed; the transition itself is
// already committed at that point.
type RentalResult struct {
	Vehicle   Vehicle
	CommandID string
	Warning   string
}

// RentalService governs the rental lifecycle of vehicles. Transitions
// commit through the registry's compare-and-swap primitive, so two
// racing rental requests on one vehicle resolve to exactly one winner.
type RentalService struct {
	registry   *Registry
	dispatcher Dispatcher
	timeout    time.Duration
	commands   *cache.Cache
	logger     zerolog.Logger
}

// NewRentalService wires the state machine to the registry and the
// device command dispatcher. timeout bounds each dispatch attempt.
func NewRentalService(registry *Registry, dispatcher Dispatcher, timeout time.Duration, logger zerolog.Logger) *RentalService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RentalService{
		registry:   registry,
		dispatcher: dispatcher,
		timeout:    timeout,
		commands:   cache.New(time.Hour, 2*time.Hour),
		logger:     logger.With().Str("component", "rental").Logger(),
	}
}

// Start begins a rental: available -> in_use via compare-and-swap, then
// an unlock command to the device. The transition is committed before
// the dispatch fires; a dispatch failure is surfaced as a warning and
// never rolls the status back.
func (s *RentalService) Start(ctx context.Context, imei, userID string) (RentalResult, error) {
	cur, err := s.registry.Find(imei)
	if err != nil {
		return RentalResult{}, err
	}
	to, err := nextStatus(ctx, cur.Status, eventRent)
	if err != nil {
		return RentalResult{}, fmt.Errorf("%w: status is %s", ErrVehicleUnavailable, cur.Status)
	}

	from := cur.Status
	v, err := s.registry.TransitionStatus(imei, &from, to, userID)
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return RentalResult{}, ErrVehicleUnavailable
		}
		return RentalResult{}, err
	}

	res := RentalResult{Vehicle: v}
	res.CommandID, res.Warning = s.dispatch(ctx, imei, CommandUnlock)
	return res, nil
}

// End finishes a rental: in_use -> available plus a lock command, with
// the same commit-before-dispatch semantics as Start.
func (s *RentalService) End(ctx context.Context, imei string) (RentalResult, error) {
	cur, err := s.registry.Find(imei)
	if err != nil {
		return RentalResult{}, err
	}
	to, err := nextStatus(ctx, cur.Status, eventReturn)
	if err != nil {
		return RentalResult{}, fmt.Errorf("%w: status is %s", ErrVehicleNotInUse, cur.Status)
	}

	from := cur.Status
	v, err := s.registry.TransitionStatus(imei, &from, to, "")
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return RentalResult{}, ErrVehicleNotInUse
		}
		return RentalResult{}, err
	}

	res := RentalResult{Vehicle: v}
	res.CommandID, res.Warning = s.dispatch(ctx, imei, CommandLock)
	return res, nil
}

// ApplyDeviceReport folds device-reported lock/ignition state into the
// vehicle status. Device truth wins for idle vehicles, but a report
// never clears an in-progress rental, and a transition that loses to a
// concurrent rental request yields rather than clobbering it.
func (s *RentalService) ApplyDeviceReport(imei string, rec *telemetry.Record) (Vehicle, error) {
	cur, err := s.registry.Find(imei)
	if err != nil {
		return Vehicle{}, err
	}
	if cur.Status == StatusInUse {
		return cur, nil
	}

	target := cur.Status
	if cur.Status == StatusOffline {
		// Any accepted report from an offline vehicle brings it back.
		target = StatusAvailable
	}
	switch {
	case rec.Locked != nil:
		if *rec.Locked {
			target = StatusLocked
		} else {
			target = StatusAvailable
		}
	case rec.Ignition != nil:
		if *rec.Ignition {
			target = StatusAvailable
		}
	}
	if target == cur.Status {
		return cur, nil
	}

	from := cur.Status
	v, err := s.registry.TransitionStatus(imei, &from, target, "")
	if errors.Is(err, ErrPreconditionFailed) {
		s.logger.Debug().Str("imei", imei).Str("target", string(target)).Msg("device report lost to concurrent transition")
		return s.registry.Find(imei)
	}
	return v, err
}

// Command returns the recorded outcome of a recent dispatch.
func (s *RentalService) Command(id string) (CommandOutcome, bool) {
	o, found := s.commands.Get(id)
	if !found {
		return CommandOutcome{}, false
	}
	return o.(CommandOutcome), true
}

// dispatch sends one command with a bounded timeout and records the
// outcome. The dispatch context is detached from the request context so
// a client disconnect cannot abort a command for a committed rental.
func (s *RentalService) dispatch(ctx context.Context, imei, command string) (id, warning string) {
	id = ksuid.New().String()
	outcome := CommandOutcome{
		ID:      id,
		IMEI:    imei,
		Command: command,
		SentAt:  time.Now().UTC(),
		OK:      true,
	}

	if s.dispatcher == nil {
		outcome.OK = false
		outcome.Error = "no dispatcher configured"
	} else {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.dispatcher.Send(dctx, imei, command); err != nil {
			outcome.OK = false
			outcome.Error = err.Error()
		}
	}

	s.commands.SetDefault(id, outcome)
	if !outcome.OK {
		s.logger.Warn().Str("imei", imei).Str("command", command).Str("commandId", id).Str("error", outcome.Error).Msg("command dispatch failed")
		return id, fmt.Sprintf("%s command failed: %s", command, outcome.Error)
	}
	s.logger.Info().Str("imei", imei).Str("command", command).Str("commandId", id).Msg("command dispatched")
	return id, ""
}

package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltride/fleet-api/internal/telemetry"
)

type sentCommand struct {
	IMEI    string
	Command string
}

type fakeDispatcher struct {
	mu       sync.Mutex
	commands []sentCommand
	err      error
}

func (d *fakeDispatcher) Send(_ context.Context, deviceID, command string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, sentCommand{IMEI: deviceID, Command: command})
	return d.err
}

func (d *fakeDispatcher) sent() []sentCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sentCommand, len(d.commands))
	copy(out, d.commands)
	return out
}

func testRentalService(t *testing.T) (*RentalService, *Registry, *fakeDispatcher) {
	t.Helper()
	registry := NewRegistry(zerolog.Nop(), nil)
	dispatcher := &fakeDispatcher{}
	svc := NewRentalService(registry, dispatcher, time.Second, zerolog.Nop())
	return svc, registry, dispatcher
}

func TestRentalLifecycle(t *testing.T) {
	svc, registry, dispatcher := testRentalService(t)
	const imei = "350544507678012"
	_, err := registry.Register(Vehicle{IMEI: imei})
	require.NoError(t, err)

	res, err := svc.Start(context.Background(), imei, "user-42")
	require.NoError(t, err)
	assert.Equal(t, StatusInUse, res.Vehicle.Status)
	assert.Equal(t, "user-42", res.Vehicle.CurrentUserID)
	assert.Empty(t, res.Warning)
	require.Len(t, dispatcher.sent(), 1)
	assert.Equal(t, sentCommand{IMEI: imei, Command: CommandUnlock}, dispatcher.sent()[0])

	// A second start before the rental ends loses.
	_, err = svc.Start(context.Background(), imei, "user-43")
	assert.ErrorIs(t, err, ErrVehicleUnavailable)

	res, err = svc.End(context.Background(), imei)
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, res.Vehicle.Status)
	assert.Empty(t, res.Vehicle.CurrentUserID)
	require.Len(t, dispatcher.sent(), 2)
	assert.Equal(t, sentCommand{IMEI: imei, Command: CommandLock}, dispatcher.sent()[1])
}

func TestStartRentalUnknownVehicle(t *testing.T) {
	svc, _, _ := testRentalService(t)
	_, err := svc.Start(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEndRentalNotInUse(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)

	_, err = svc.End(context.Background(), "111111111111111")
	assert.ErrorIs(t, err, ErrVehicleNotInUse)
}

func TestStartRentalFromIllegalStates(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	for _, status := range []Status{StatusOffline, StatusLocked, StatusInUse} {
		imei := "10000000000000" + string(status[0])
		_, err := registry.Register(Vehicle{IMEI: imei, Status: status})
		require.NoError(t, err)

		_, err = svc.Start(context.Background(), imei, "")
		assert.ErrorIs(t, err, ErrVehicleUnavailable, "status %s", status)
	}
}

func TestDispatchFailureDoesNotRevertTransition(t *testing.T) {
	svc, registry, dispatcher := testRentalService(t)
	dispatcher.err = errors.New("device network unreachable")
	_, err := registry.Register(Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)

	res, err := svc.Start(context.Background(), "111111111111111", "user-1")
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "unlock command failed")

	// The rental is committed even though the unlock never landed.
	v, err := registry.Find("111111111111111")
	require.NoError(t, err)
	assert.Equal(t, StatusInUse, v.Status)

	outcome, found := svc.Command(res.CommandID)
	require.True(t, found)
	assert.False(t, outcome.OK)
	assert.Equal(t, CommandUnlock, outcome.Command)
}

func TestConcurrentStartExactlyOneWinner(t *testing.T) {
	svc, registry, dispatcher := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Start(context.Background(), "111111111111111", "racer")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrVehicleUnavailable)
		}
	}
	assert.Equal(t, 1, wins)
	// Only the winner unlocked the scooter.
	assert.Len(t, dispatcher.sent(), 1)
}

func TestDeviceReportLockFlag(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)

	v, err := svc.ApplyDeviceReport("111111111111111", &telemetry.Record{Locked: bptr(true)})
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, v.Status)

	v, err = svc.ApplyDeviceReport("111111111111111", &telemetry.Record{Locked: bptr(false)})
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, v.Status)
}

func TestDeviceReportNeverClearsRental(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), "111111111111111", "user-1")
	require.NoError(t, err)

	v, err := svc.ApplyDeviceReport("111111111111111", &telemetry.Record{Locked: bptr(true)})
	require.NoError(t, err)
	assert.Equal(t, StatusInUse, v.Status)
}

func TestDeviceReportRecoversOffline(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111", Status: StatusOffline})
	require.NoError(t, err)

	// Any accepted report brings an offline vehicle back.
	v, err := svc.ApplyDeviceReport("111111111111111", &telemetry.Record{Battery: iptr(55)})
	require.NoError(t, err)
	assert.Equal(t, StatusAvailable, v.Status)
}

func TestDeviceReportNoSignalNoChange(t *testing.T) {
	svc, registry, _ := testRentalService(t)
	_, err := registry.Register(Vehicle{IMEI: "111111111111111", Status: StatusLocked})
	require.NoError(t, err)

	v, err := svc.ApplyDeviceReport("111111111111111", &telemetry.Record{Battery: iptr(55)})
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, v.Status)
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltride/fleet-api/internal/fleet"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	commands []string
}

func (d *fakeDispatcher) Send(_ context.Context, _, command string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, command)
	return nil
}

func testApp(t *testing.T) (*fiber.App, *fleet.Registry, *fakeDispatcher) {
	t.Helper()
	logger := zerolog.Nop()
	registry := fleet.NewRegistry(logger, nil)
	dispatcher := &fakeDispatcher{}
	rentals := fleet.NewRentalService(registry, dispatcher, time.Second, logger)
	ctrl, err := NewController(registry, rentals, &logger)
	require.NoError(t, err)
	return New(&logger, ctrl), registry, dispatcher
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestTelemetryWebhook(t *testing.T) {
	app, registry, _ := testApp(t)
	_, err := registry.Register(fleet.Vehicle{IMEI: "350544507678012", Speed: 12.5, Odometer: 9000})
	require.NoError(t, err)

	payload := `{"device":{"imei":"350544507678012"},"position":{"latitude":54.82,"longitude":55.86},"battery.level":80}`
	code, body := postJSON(t, app, "/api/telemetry", payload)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["scooter_id"])

	v, err := registry.Find("350544507678012")
	require.NoError(t, err)
	assert.Equal(t, 54.82, v.Lat)
	assert.Equal(t, 55.86, v.Lng)
	assert.Equal(t, 80, v.Battery)
	// Fields absent from the payload are untouched.
	assert.Equal(t, 12.5, v.Speed)
	assert.Equal(t, int64(9000), v.Odometer)
	assert.Equal(t, fleet.StatusAvailable, v.Status)
}

func TestTelemetryWebhookMissingIdent(t *testing.T) {
	app, _, _ := testApp(t)
	code, _ := postJSON(t, app, "/api/telemetry", `{"position":{"latitude":54.82}}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestTelemetryWebhookUnknownDevice(t *testing.T) {
	app, _, _ := testApp(t)
	code, _ := postJSON(t, app, "/api/telemetry", `{"ident":"999999999999999"}`)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRentalFlow(t *testing.T) {
	app, registry, dispatcher := testApp(t)
	_, err := registry.Register(fleet.Vehicle{IMEI: "350544507678012"})
	require.NoError(t, err)

	code, body := postJSON(t, app, "/api/scooters/350544507678012/rent", `{"user_id":"user-42"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])
	scooter := body["scooter"].(map[string]any)
	assert.Equal(t, "in_use", scooter["status"])

	// Renting an in-use scooter is rejected.
	code, _ = postJSON(t, app, "/api/scooters/350544507678012/rent", `{"user_id":"user-43"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, body = postJSON(t, app, "/api/scooters/350544507678012/return", ``)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])
	scooter = body["scooter"].(map[string]any)
	assert.Equal(t, "available", scooter["status"])

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Equal(t, []string{fleet.CommandUnlock, fleet.CommandLock}, dispatcher.commands)
}

func TestRentalUnknownScooter(t *testing.T) {
	app, _, _ := testApp(t)
	code, _ := postJSON(t, app, "/api/scooters/999999999999999/rent", ``)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRegisterScooter(t *testing.T) {
	app, _, _ := testApp(t)

	code, body := postJSON(t, app, "/api/scooters", `{"imei":"350544507678012","lat":55.75,"lng":37.62,"battery":90}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, float64(1), body["id"])

	code, _ = postJSON(t, app, "/api/scooters", `{"imei":"350544507678012"}`)
	assert.Equal(t, fiber.StatusConflict, code)

	code, _ = postJSON(t, app, "/api/scooters", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestListScooters(t *testing.T) {
	app, registry, _ := testApp(t)
	_, err := registry.Register(fleet.Vehicle{IMEI: "111111111111111", Lat: 55.75, Lng: 37.62, Battery: 90})
	require.NoError(t, err)
	_, err = registry.Register(fleet.Vehicle{IMEI: "222222222222222", Status: fleet.StatusOffline})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/scooters", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var scooters []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scooters))
	require.Len(t, scooters, 2)
	for _, key := range []string{"id", "imei", "lat", "lng", "battery", "status", "speed", "odometer"} {
		assert.Contains(t, scooters[0], key)
	}
	assert.Equal(t, "111111111111111", scooters[0]["imei"])
	assert.Equal(t, "offline", scooters[1]["status"])
}

func TestGetScooter(t *testing.T) {
	app, registry, _ := testApp(t)
	_, err := registry.Register(fleet.Vehicle{IMEI: "111111111111111"})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/scooters/111111111111111", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/api/scooters/999999999999999", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

package app

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/voltride/fleet-api/internal/fleet"
	"github.com/voltride/fleet-api/internal/telemetry"
)

// Controller translates HTTP requests into core operations and core
// errors into status codes. All state lives behind the registry and the
// rental service.
type Controller struct {
	registry *fleet.Registry
	rentals  *fleet.RentalService
	logger   *zerolog.Logger
}

// NewController creates a controller with all required services.
func NewController(registry *fleet.Registry, rentals *fleet.RentalService, logger *zerolog.Logger) (*Controller, error) {
	if registry == nil {
		return nil, errors.New("registry is nil")
	}
	if rentals == nil {
		return nil, errors.New("rental service is nil")
	}
	return &Controller{
		registry: registry,
		rentals:  rentals,
		logger:   logger,
	}, nil
}

type scooterResponse struct {
	ID       int64   `json:"id"`
	IMEI     string  `json:"imei"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Battery  int     `json:"battery"`
	Status   string  `json:"status"`
	Speed    float64 `json:"speed"`
	Odometer int64   `json:"odometer"`
}

type telemetryResponse struct {
	Status    string `json:"status"`
	ScooterID int64  `json:"scooter_id"`
}

type rentalScooter struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type rentalResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Scooter rentalScooter `json:"scooter"`
}

type registerRequest struct {
	IMEI    string  `json:"imei"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Battery int     `json:"battery"`
}

type rentRequest struct {
	UserID string `json:"user_id"`
}

func toScooterResponse(v fleet.Vehicle) scooterResponse {
	return scooterResponse{
		ID:       v.ID,
		IMEI:     v.IMEI,
		Lat:      v.Lat,
		Lng:      v.Lng,
		Battery:  v.Battery,
		Status:   string(v.Status),
		Speed:    v.Speed,
		Odometer: v.Odometer,
	}
}

// IngestTelemetry godoc
// @Summary Ingest a device telemetry payload
// @Description Normalize one webhook payload and apply it to the matching scooter
// @Tags telemetry
// @Accept json
// @Produce json
// @Param payload body map[string]interface{} true "Raw device payload"
// @Success 200 {object} telemetryResponse
// @Failure 400 {object} codeResp
// @Failure 404 {object} codeResp
// @Failure 500 {object} codeResp
// @Router /api/telemetry [post]
func (c *Controller) IngestTelemetry(ctx *fiber.Ctx) error {
	rec, err := telemetry.Normalize(ctx.Body())
	if err != nil {
		if errors.Is(err, telemetry.ErrMissingDeviceIdent) || errors.Is(err, telemetry.ErrMalformedPayload) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		c.logger.Error().Err(err).Msg("Failed to normalize telemetry")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to normalize telemetry")
	}

	v, err := c.registry.ApplyTelemetry(rec.Ident, rec)
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Unknown device identifier")
		}
		c.logger.Error().Err(err).Str("imei", rec.Ident).Msg("Failed to apply telemetry")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to apply telemetry")
	}

	// Device-reported status signals ride along with the same payload.
	if _, err := c.rentals.ApplyDeviceReport(rec.Ident, rec); err != nil {
		c.logger.Error().Err(err).Str("imei", rec.Ident).Msg("Failed to apply device status report")
	}

	return ctx.JSON(telemetryResponse{Status: "ok", ScooterID: v.ID})
}

// ListScooters godoc
// @Summary List the fleet
// @Description Get a snapshot of every scooter
// @Tags scooters
// @Accept json
// @Produce json
// @Success 200 {array} scooterResponse
// @Router /api/scooters [get]
func (c *Controller) ListScooters(ctx *fiber.Ctx) error {
	vehicles := c.registry.Snapshot()
	out := make([]scooterResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toScooterResponse(v))
	}
	return ctx.JSON(out)
}

// GetScooter godoc
// @Summary Get one scooter
// @Description Get the current snapshot of a scooter by IMEI
// @Tags scooters
// @Accept json
// @Produce json
// @Param imei path string true "Device IMEI"
// @Success 200 {object} scooterResponse
// @Failure 404 {object} codeResp
// @Router /api/scooters/{imei} [get]
func (c *Controller) GetScooter(ctx *fiber.Ctx) error {
	v, err := c.registry.Find(ctx.Params("imei"))
	if err != nil {
		if errors.Is(err, fleet.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Unknown scooter")
		}
		c.logger.Error().Err(err).Msg("Failed to get scooter")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to get scooter")
	}
	return ctx.JSON(toScooterResponse(v))
}

// RegisterScooter godoc
// @Summary Register a scooter
// @Description Add a new scooter to the fleet
// @Tags scooters
// @Accept json
// @Produce json
// @Param scooter body registerRequest true "Scooter to register"
// @Success 200 {object} scooterResponse
// @Failure 400 {object} codeResp
// @Failure 409 {object} codeResp
// @Router /api/scooters [post]
func (c *Controller) RegisterScooter(ctx *fiber.Ctx) error {
	var req registerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.IMEI == "" {
		return fiber.NewError(fiber.StatusBadRequest, "imei is required")
	}

	v, err := c.registry.Register(fleet.Vehicle{
		IMEI:    req.IMEI,
		Lat:     req.Lat,
		Lng:     req.Lng,
		Battery: req.Battery,
	})
	if err != nil {
		if errors.Is(err, fleet.ErrExists) {
			return fiber.NewError(fiber.StatusConflict, "Scooter already registered")
		}
		c.logger.Error().Err(err).Str("imei", req.IMEI).Msg("Failed to register scooter")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to register scooter")
	}
	return ctx.JSON(toScooterResponse(v))
}

// StartRental godoc
// @Summary Start a rental
// @Description Transition a scooter to in_use and unlock it
// @Tags rentals
// @Accept json
// @Produce json
// @Param imei path string true "Device IMEI"
// @Param rental body rentRequest false "Renter reference"
// @Success 200 {object} rentalResponse
// @Failure 400 {object} codeResp
// @Failure 404 {object} codeResp
// @Failure 500 {object} codeResp
// @Router /api/scooters/{imei}/rent [post]
func (c *Controller) StartRental(ctx *fiber.Ctx) error {
	var req rentRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	res, err := c.rentals.Start(ctx.UserContext(), ctx.Params("imei"), req.UserID)
	if err != nil {
		return rentalError(err, "Scooter is not available")
	}

	message := "rental started"
	if res.Warning != "" {
		message = fmt.Sprintf("rental started (%s)", res.Warning)
	}
	return ctx.JSON(rentalResponse{
		Success: true,
		Message: message,
		Scooter: rentalScooter{ID: res.Vehicle.ID, Status: string(res.Vehicle.Status)},
	})
}

// EndRental godoc
// @Summary End a rental
// @Description Transition a scooter back to available and lock it
// @Tags rentals
// @Accept json
// @Produce json
// @Param imei path string true "Device IMEI"
// @Success 200 {object} rentalResponse
// @Failure 400 {object} codeResp
// @Failure 404 {object} codeResp
// @Failure 500 {object} codeResp
// @Router /api/scooters/{imei}/return [post]
func (c *Controller) EndRental(ctx *fiber.Ctx) error {
	res, err := c.rentals.End(ctx.UserContext(), ctx.Params("imei"))
	if err != nil {
		return rentalError(err, "Scooter is not in use")
	}

	message := "rental ended"
	if res.Warning != "" {
		message = fmt.Sprintf("rental ended (%s)", res.Warning)
	}
	return ctx.JSON(rentalResponse{
		Success: true,
		Message: message,
		Scooter: rentalScooter{ID: res.Vehicle.ID, Status: string(res.Vehicle.Status)},
	})
}

// rentalError maps rental state machine errors onto HTTP codes.
func rentalError(err error, illegalStateMsg string) error {
	switch {
	case errors.Is(err, fleet.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Unknown scooter")
	case errors.Is(err, fleet.ErrVehicleUnavailable), errors.Is(err, fleet.ErrVehicleNotInUse):
		return fiber.NewError(fiber.StatusBadRequest, illegalStateMsg)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to process rental request")
	}
}

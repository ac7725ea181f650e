package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/agamariel/markstation/internal/auth"
	"github.com/agamariel/markstation/internal/fiscal"
	"github.com/agamariel/markstation/internal/models"
	"github.com/agamariel/markstation/internal/scan"
	"github.com/agamariel/markstation/internal/station"
	"github.com/agamariel/markstation/internal/storage"
	"github.com/agamariel/markstation/internal/units"
)

// maxScanBody - предельная длина строки сканера, принимаемой через HTTP.
const maxScanBody = 4 << 10

// StationService - операции станции, доступные оператору.
type StationService interface {
	Snapshot(ctx context.Context) (station.Snapshot, error)
	Scan(ctx context.Context, token string) error
	Select(ctx context.Context, unit int) error
	Waive(ctx context.Context, unit int) error
	Confirm(ctx context.Context) error
	Reject(ctx context.Context) error
	Clear(ctx context.Context) error
	Finalize(ctx context.Context) (*models.Receipt, error)
}

// StationHandler обрабатывает HTTP-запросы интерфейса оператора.
type StationHandler struct {
	station StationService
}

// NewStationHandler создаёт новый экземпляр StationHandler.
func NewStationHandler(station StationService) *StationHandler {
	return &StationHandler{station: station}
}

// State обрабатывает GET /api/station/state.
func (h *StationHandler) State(c echo.Context) error {
	return h.respond(c, nil)
}

// Scan обрабатывает POST /api/station/scan. Тело - строка так, как её выдал бы сканер.
func (h *StationHandler) Scan(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxScanBody+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read body")
	}
	if len(body) > maxScanBody {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "scan is too long")
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty scan")
	}

	return h.respond(c, h.station.Scan(c.Request().Context(), token))
}

// Select обрабатывает POST /api/station/units/:index/select.
func (h *StationHandler) Select(c echo.Context) error {
	index, err := unitIndex(c)
	if err != nil {
		return err
	}
	return h.respond(c, h.station.Select(c.Request().Context(), index))
}

// Waive обрабатывает POST /api/station/units/:index/waive.
func (h *StationHandler) Waive(c echo.Context) error {
	index, err := unitIndex(c)
	if err != nil {
		return err
	}
	err = h.station.Waive(c.Request().Context(), index)
	if err == nil {
		c.Logger().Infof("unit %d waived by operator %s", index, operatorOf(c))
	}
	return h.respond(c, err)
}

// Confirm обрабатывает POST /api/station/decision/confirm.
func (h *StationHandler) Confirm(c echo.Context) error {
	err := h.station.Confirm(c.Request().Context())
	if err == nil {
		c.Logger().Infof("mark confirmed by operator %s", operatorOf(c))
	}
	return h.respond(c, err)
}

// Reject обрабатывает POST /api/station/decision/reject.
func (h *StationHandler) Reject(c echo.Context) error {
	err := h.station.Reject(c.Request().Context())
	if err == nil {
		c.Logger().Infof("mark rejected by operator %s", operatorOf(c))
	}
	return h.respond(c, err)
}

// Clear обрабатывает POST /api/station/order/clear.
func (h *StationHandler) Clear(c echo.Context) error {
	return h.respond(c, h.station.Clear(c.Request().Context()))
}

// Finalize обрабатывает POST /api/station/finalize и возвращает отправленный чек.
func (h *StationHandler) Finalize(c echo.Context) error {
	receipt, err := h.station.Finalize(c.Request().Context())
	if err != nil {
		var rejected *fiscal.RejectedError
		if errors.As(err, &rejected) {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"message": "order has units without a resolved mark",
				"order":   rejected.OrderID,
				"units":   rejected.Units,
			})
		}
		return stationError(c, err)
	}
	c.Logger().Infof("receipt %s for order %s sent by operator %s", receipt.ID, receipt.OrderID, operatorOf(c))
	return c.JSON(http.StatusOK, receipt)
}

// operatorOf возвращает ID оператора, выполнившего запрос.
func operatorOf(c echo.Context) string {
	id, err := auth.GetOperatorIDFromContext(c)
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// respond отвечает снимком состояния станции после выполненной операции.
func (h *StationHandler) respond(c echo.Context, opErr error) error {
	if opErr != nil {
		return stationError(c, opErr)
	}
	snap, err := h.station.Snapshot(c.Request().Context())
	if err != nil {
		return stationError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func unitIndex(c echo.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid unit index")
	}
	return index, nil
}

// stationError переводит ошибки станции в HTTP-ответ.
func stationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, scan.ErrEmptyOrderID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, station.ErrUnitOutOfRange):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, units.ErrFractionalQuantity):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, fiscal.ErrEmptyReceipt):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, station.ErrNoOrder),
		errors.Is(err, station.ErrValidationInFlight),
		errors.Is(err, station.ErrNotAwaitingMark),
		errors.Is(err, station.ErrNoDecisionPending),
		errors.Is(err, fiscal.ErrOrderUnresolved),
		errors.Is(err, fiscal.ErrAlreadyFiscalized):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, fiscal.ErrSubmissionFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, station.ErrLoopStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "station is not available")
	default:
		c.Logger().Errorf("station operation failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

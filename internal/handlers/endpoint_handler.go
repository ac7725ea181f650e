package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agamariel/markstation/internal/models"
)

// EndpointPool - таблица площадок реестра.
type EndpointPool interface {
	Candidates() []models.EndpointCandidate
	Best() (string, bool)
}

// RefreshTrigger запускает повторную проверку площадок.
type RefreshTrigger interface {
	Trigger() bool
}

// EndpointHandler показывает диагностику площадок реестра.
type EndpointHandler struct {
	pool      EndpointPool
	refresher RefreshTrigger
}

// NewEndpointHandler создаёт новый экземпляр EndpointHandler.
func NewEndpointHandler(pool EndpointPool, refresher RefreshTrigger) *EndpointHandler {
	return &EndpointHandler{pool: pool, refresher: refresher}
}

// List обрабатывает GET /api/station/endpoints.
func (h *EndpointHandler) List(c echo.Context) error {
	best, _ := h.pool.Best()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"best":       best,
		"candidates": h.pool.Candidates(),
	})
}

// Refresh обрабатывает POST /api/station/endpoints/refresh.
// Если проверка уже запланирована, повторный запрос ничего не добавляет.
func (h *EndpointHandler) Refresh(c echo.Context) error {
	h.refresher.Trigger()
	return c.NoContent(http.StatusAccepted)
}

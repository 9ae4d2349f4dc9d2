package imports

import (
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/importer"
)

// Handler exposes the on-demand import trigger.
type Handler struct {
	importer *importer.Importer
	logger   ectologger.Logger
}

func NewHandler(imp *importer.Importer, logger ectologger.Logger) *Handler {
	return &Handler{
		importer: imp,
		logger:   logger,
	}
}

// RegisterRoutes registers import endpoints
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/imports/run", h.Run)
}

// Run executes a full import synchronously and returns the run report. An
// aborted run maps to 502 since the CRM is the failing upstream.
func (h *Handler) Run(c echo.Context) error {
	ctx := c.Request().Context()

	report, err := h.importer.Run(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Import run failed")
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, report)
}

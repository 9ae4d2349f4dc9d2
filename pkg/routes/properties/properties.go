package properties

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/feed"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

// Store is the read surface the property routes need.
type Store interface {
	GetByRefNo(ctx context.Context, refNo string) (*models.Property, error)
	List(ctx context.Context, portal string) ([]models.Property, error)
	Count(ctx context.Context) (int64, error)
}

// Handler serves the property read endpoints and the portal XML feed.
type Handler struct {
	store  Store
	logger ectologger.Logger
}

func NewHandler(store Store, logger ectologger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// RegisterRoutes registers property endpoints
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/properties")
	g.GET("", h.List)
	g.GET("/xml", h.GenerateXML)
	g.GET("/:refNo", h.Get)
}

// GenerateXML renders the portal feed. An optional portal query parameter
// narrows the feed to properties targeting that portal.
func (h *Handler) GenerateXML(c echo.Context) error {
	ctx := c.Request().Context()

	properties, err := h.store.List(ctx, c.QueryParam("portal"))
	if err != nil {
		return err
	}

	body, err := feed.Render(properties)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to render property feed")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render property feed")
	}

	return c.Blob(http.StatusOK, "application/xml", body)
}

// ListResponse wraps the property list with its total count.
type ListResponse struct {
	Properties []models.Property `json:"properties"`
	Total      int64             `json:"total"`
}

// List returns stored properties as JSON
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	properties, err := h.store.List(ctx, c.QueryParam("portal"))
	if err != nil {
		return err
	}

	total, err := h.store.Count(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &ListResponse{
		Properties: properties,
		Total:      total,
	})
}

// Get returns a single property by its reference
func (h *Handler) Get(c echo.Context) error {
	property, err := h.store.GetByRefNo(c.Request().Context(), c.Param("refNo"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, property)
}

package translate

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/triplebob/emis-xml-convertor/internal/domain/extract"
	"github.com/triplebob/emis-xml-convertor/internal/domain/lookup"
)

// TranslationResponse is the envelope returned for one translation run.
type TranslationResponse struct {
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	Mode        DeduplicationMode `json:"mode"`
	Summary     Summary           `json:"summary"`
	LookupStats lookup.Stats      `json:"lookup_stats"`
	Results     *Results          `json:"results"`
}

// Handler provides REST endpoints for the translation service.
type Handler struct {
	svc *Service
}

// NewHandler creates a new translation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers translation routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/translations", h.Translate)
	api.GET("/lookup/stats", h.LookupStats)
}

// Translate handles POST /api/v1/translations. The document arrives either
// as the raw request body or as a multipart upload under the "file" field;
// ?mode= selects the deduplication mode.
func (h *Handler) Translate(c echo.Context) error {
	xmlText, err := readDocument(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	mode := DeduplicationMode(c.QueryParam("mode"))
	if mode == "" {
		mode = ModeUniqueCodes
	}

	results, err := h.svc.Translate(c.Request().Context(), xmlText, mode)
	if err != nil {
		var parseErr *extract.ParseError
		if errors.As(err, &parseErr) {
			return echo.NewHTTPError(http.StatusBadRequest, parseErr.Error())
		}
		var cfgErr *lookup.ConfigError
		if errors.As(err, &cfgErr) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, cfgErr.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, TranslationResponse{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Mode:        mode,
		Summary:     results.Summarize(),
		LookupStats: h.svc.LookupStats(),
		Results:     results,
	})
}

// LookupStats handles GET /api/v1/lookup/stats.
func (h *Handler) LookupStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.LookupStats())
}

func readDocument(c echo.Context) (string, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("multipart field 'file' is required")
		}
		f, err := fileHeader.Open()
		if err != nil {
			return "", fmt.Errorf("open uploaded file: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read uploaded file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", fmt.Errorf("read request body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("xml document is required")
	}
	return string(data), nil
}

// Package handlers provides the HTTP handlers of the read-only price API.
package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/mapping"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.SnapshotStore
	validator     interfaces.RecordValidator
	healthChecker interfaces.HealthChecker
	logger        *slog.Logger
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	dataStore interfaces.SnapshotStore,
	validator interfaces.RecordValidator,
	healthChecker interfaces.HealthChecker,
	logger *slog.Logger,
) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		logger:        logger,
	}
}

// PricesResponse wraps the records with the snapshot they come from
type PricesResponse struct {
	SourceFile string                    `json:"source_file"`
	ScrapedAt  string                    `json:"scraped_at,omitempty"`
	Count      int                       `json:"count"`
	Records    []entities.StandardRecord `json:"records"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

func (h *HTTPHandlerImpl) pricesResponse(records []entities.StandardRecord) PricesResponse {
	resp := PricesResponse{
		SourceFile: h.dataStore.GetSourceFile(),
		Count:      len(records),
		Records:    records,
	}
	if last := h.dataStore.GetLastUpdated(); !last.IsZero() {
		resp.ScrapedAt = last.Format(time.RFC3339)
	}
	return resp
}

// ServePrices returns every record of the latest scrape
func (h *HTTPHandlerImpl) ServePrices(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, h.logger, http.StatusOK, h.pricesResponse(h.dataStore.GetRecords()))
}

// FindPrice returns the records whose Nepali or English name equals the
// path parameter, ignoring case
func (h *HTTPHandlerImpl) FindPrice(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		RespondWithError(w, r, h.logger, http.StatusBadRequest, "Invalid product name encoding")
		return
	}

	if err := h.validator.ValidateInput(name); err != nil {
		h.logger.Warn("Unusual user input", "name", name, "error", err)
		RespondWithError(w, r, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	name = strings.TrimSpace(name)
	var results []entities.StandardRecord
	for _, record := range h.dataStore.GetRecords() {
		if strings.EqualFold(record.NepaliName, name) || (record.EnglishName != "" && strings.EqualFold(record.EnglishName, name)) {
			results = append(results, record)
		}
	}

	if len(results) == 0 {
		RespondWithError(w, r, h.logger, http.StatusNotFound, "Product not found")
		return
	}

	RespondWithJSON(w, r, h.logger, http.StatusOK, h.pricesResponse(results))
}

// ServeMapping returns the Nepali to English product dictionary
func (h *HTTPHandlerImpl) ServeMapping(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, r, h.logger, http.StatusOK, h.dataStore.GetMapping())
}

// ServeUntranslated returns the sorted product names still missing an English name
func (h *HTTPHandlerImpl) ServeUntranslated(w http.ResponseWriter, r *http.Request) {
	names := mapping.Untranslated(h.dataStore.GetMapping())
	RespondWithJSON(w, r, h.logger, http.StatusOK, map[string]any{
		"count":    len(names),
		"products": names,
	})
}

// HealthCheck returns the snapshot health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()
	RespondWithJSON(w, r, h.logger, httpStatus, HealthResponse{Status: status, Data: data})
}

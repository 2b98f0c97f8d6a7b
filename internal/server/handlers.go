package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"networth-tracker/internal/errors"
	"networth-tracker/internal/logging"
	"networth-tracker/internal/models"
	"networth-tracker/internal/prices"
	"networth-tracker/internal/resilience"
)

// maxUploadBytes caps CSV uploads.
const maxUploadBytes = 10 << 20

// handleHealth handles health check requests. An open provider circuit
// reports "degraded"; cached prices are still served.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	var providers []resilience.CircuitBreakerStats
	if s.breakers != nil {
		providers = s.breakers.AllStats()
		for _, p := range providers {
			if p.State != resilience.CircuitClosed {
				status = "degraded"
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"service":   "networth-tracker",
		"providers": providers,
	})
}

// priceRequest is a holding-like record to price.
type priceRequest struct {
	Type         models.HoldingType `json:"type"`
	Symbol       *string            `json:"symbol"`
	Exchange     *string            `json:"exchange"`
	Currency     models.Currency    `json:"currency"`
	ForceRefresh bool               `json:"forceRefresh"`
}

// handleFetchPrice prices a single holding.
func (s *Server) handleFetchPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Type.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown holding type %q", req.Type))
		return
	}

	holding := models.Holding{
		UserID:   UserFromContext(r.Context()),
		Type:     req.Type,
		Symbol:   req.Symbol,
		Exchange: req.Exchange,
		Currency: req.Currency,
	}

	result, err := s.prices.FetchPrice(r.Context(), holding, prices.FetchOptions{ForceRefresh: req.ForceRefresh})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errors.ErrNotTradeable) || errors.Is(err, errors.ErrMissingSymbol) || errors.Is(err, errors.ErrUnknownSymbol) {
			status = http.StatusBadRequest
		}
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Msg("Price lookup failed")
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleRefreshPrices prices every tradeable holding of the current user.
func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	userID := UserFromContext(r.Context())

	results, err := s.prices.RefreshUser(r.Context(), s.holdings, userID, prices.FetchOptions{ForceRefresh: force})
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("Price refresh failed")
		s.writeError(w, http.StatusInternalServerError, "failed to refresh prices")
		return
	}

	s.writeJSON(w, http.StatusOK, results)
}

// handleImport accepts a raw CSV body or a multipart form with a "file" field.
func (s *Server) handleImport(kind string, imp Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		text, err := readUpload(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(text) == "" {
			s.writeError(w, http.StatusBadRequest, "empty CSV upload")
			return
		}

		result, err := imp.Import(r.Context(), UserFromContext(r.Context()), text)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, errors.ErrInputValidation) {
				status = http.StatusBadRequest
			}
			logger := logging.FromContext(r.Context())
			logger.Error().Err(err).Str("kind", kind).Msg("Import failed")
			s.writeError(w, status, err.Error())
			return
		}

		s.writeJSON(w, http.StatusOK, result)
	}
}

func readUpload(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("reading upload: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

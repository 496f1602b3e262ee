package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/metrics"
	"github.com/lauto554/arca-soap/pkg/models"
)

// Response is the JSON envelope for all API responses.
type Response struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Handlers holds the dependencies for the HTTP handlers.
type Handlers struct {
	acquirer       Acquirer
	defaultService string
	logger         *slog.Logger
}

// NewHandlers creates the handler set backed by the given acquirer.
func NewHandlers(acquirer Acquirer, defaultService string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultService == "" {
		defaultService = "wsfe"
	}
	return &Handlers{acquirer: acquirer, defaultService: defaultService, logger: logger}
}

// handleAccess acquires an access ticket for a tenant and environment.
func (h *Handlers) handleAccess(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	env, err := models.ParseEnvironment(chi.URLParam(r, "env"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Status:  "error",
			Code:    http.StatusBadRequest,
			Message: err.Error(),
		})
		return
	}

	service := r.URL.Query().Get("service")
	if service == "" {
		service = h.defaultService
	}

	result, err := h.acquirer.Acquire(r.Context(), service, tenant, env)
	if err != nil {
		status, message := faultStatus(err)
		h.logger.ErrorContext(r.Context(), "acquisition failed",
			"tenant", metrics.HashID(tenant),
			"environment", string(env),
			"service", service,
			"error", err,
		)
		writeJSON(w, status, Response{Status: "error", Code: status, Message: message})
		return
	}

	if result.AlreadyAuthenticated {
		writeJSON(w, http.StatusOK, Response{
			Status:  "success",
			Code:    http.StatusNoContent,
			Message: result.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Status:  "success",
		Code:    http.StatusOK,
		Message: "access ticket issued",
		Data:    result,
	})
}

// faultStatus maps an acquisition error to an HTTP status and message.
func faultStatus(err error) (int, string) {
	switch faults.KindOf(err) {
	case faults.KindPrecondition:
		return http.StatusNotFound, err.Error()
	case faults.KindRemoteFault:
		return http.StatusBadGateway, err.Error()
	case faults.KindMalformedResponse:
		return http.StatusBadGateway, err.Error()
	case faults.KindTransport:
		return http.StatusGatewayTimeout, err.Error()
	case faults.KindSigning:
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/logger"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
	"github.com/jusunglee/njt-go/internal/sensor"
	"github.com/jusunglee/njt-go/internal/setup"
	"github.com/jusunglee/njt-go/pkg/njtransit"
)

// Handler handles HTTP requests
type Handler struct {
	client njtransit.Client
}

// NewHandler creates a new HTTP handler
func NewHandler(client njtransit.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(logger.New().Handler)

	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/sensors", h.handleSensors).Methods("GET")
	r.HandleFunc("/sensors/{id}", h.handleSensor).Methods("GET")
	r.HandleFunc("/sensors/{id}/refresh", h.handleRefresh).Methods("POST")
	r.HandleFunc("/stations", h.handleStations).Methods("GET")
	r.HandleFunc("/setup/validate", h.handleValidate).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Response wraps API responses
type Response struct {
	Data    interface{} `json:"data"`
	Updated string      `json:"updated,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error        string `json:"error"`
	AuthRequired bool   `json:"auth_required,omitempty"`
}

// SnapshotResponse is the API format of a sensor snapshot
type SnapshotResponse struct {
	SensorID     string          `json:"sensor_id"`
	Name         string          `json:"name"`
	State        string          `json:"state"`
	Attributes   json.RawMessage `json:"attributes"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
	AuthRequired bool            `json:"auth_required"`
	Error        string          `json:"error,omitempty"`
}

// ValidateResponse carries either a setup result or form errors
type ValidateResponse struct {
	Result *setup.Result    `json:"result,omitempty"`
	Errors setup.FormErrors `json:"errors,omitempty"`
}

// ConvertSnapshot converts a Snapshot to SnapshotResponse format
func ConvertSnapshot(s models.Snapshot) (SnapshotResponse, error) {
	attrs := json.RawMessage("{}")
	if s.Attributes != nil {
		b, err := protojson.Marshal(s.Attributes)
		if err != nil {
			return SnapshotResponse{}, err
		}
		attrs = b
	}

	resp := SnapshotResponse{
		SensorID:     s.SensorID,
		Name:         s.Name,
		State:        s.State,
		Attributes:   attrs,
		AuthRequired: s.AuthRequired,
		Error:        s.Err,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return resp, nil
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"title":         "njt-go",
		"readme":        "Visit https://github.com/jusunglee/njt-go for more info",
		"auth_required": h.client.AuthRequired(),
	}
	h.writeJSON(w, response)
}

func (h *Handler) handleSensors(w http.ResponseWriter, r *http.Request) {
	snapshots := h.client.GetSnapshots()
	data := make([]SnapshotResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp, err := ConvertSnapshot(s)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data = append(data, resp)
	}
	h.writeJSON(w, Response{Data: data, Updated: h.updated()})
}

func (h *Handler) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snapshot, err := h.client.GetSnapshot(id)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeSnapshot(w, snapshot)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snapshot, err := h.client.Refresh(r.Context(), id)
	switch {
	case err == nil:
		h.writeSnapshot(w, snapshot)
	case errors.Is(err, njtransit.ErrSensorNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, sensor.ErrAuthRequired):
		h.writeErrorResponse(w, ErrorResponse{Error: err.Error(), AuthRequired: true}, http.StatusUnauthorized)
	default:
		h.writeError(w, err.Error(), http.StatusBadGateway)
	}
}

func (h *Handler) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.client.GetStations(r.Context())
	switch {
	case err == nil:
		h.writeJSON(w, Response{Data: stations})
	case errors.Is(err, njt.ErrInvalidAuth):
		h.writeErrorResponse(w, ErrorResponse{Error: err.Error(), AuthRequired: true}, http.StatusUnauthorized)
	default:
		h.writeError(w, err.Error(), http.StatusBadGateway)
	}
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var in setup.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, errs := h.client.ValidateSetup(r.Context(), in)
	if errs != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ValidateResponse{Errors: errs})
		return
	}
	h.writeJSON(w, ValidateResponse{Result: &result})
}

func (h *Handler) writeSnapshot(w http.ResponseWriter, snapshot models.Snapshot) {
	resp, err := ConvertSnapshot(snapshot)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, Response{Data: resp, Updated: resp.UpdatedAt})
}

func (h *Handler) updated() string {
	if last := h.client.GetLastUpdate(); !last.IsZero() {
		return last.Format(time.RFC3339)
	}
	return ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.writeError(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeErrorResponse(w, ErrorResponse{Error: message}, status)
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Package httpapi is the read-only HTTP view of the fleet. Reads resolve
// drone status like any other read, so they may persist mission expiry.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"droneFleetManagement/internal/auth"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/lifecycle"
	"droneFleetManagement/models"
)

// FleetReader is the part of the engine the HTTP API serves.
type FleetReader interface {
	ListDrones(ctx context.Context) ([]fleet.DroneView, error)
	SearchDrones(ctx context.Context, f fleet.DroneFilter) ([]fleet.DroneView, error)
	EffectiveStatus(ctx context.Context, droneID int64) (lifecycle.Status, error)
	MissionHistory(ctx context.Context, droneID int64, limit int) ([]models.Mission, error)
	Stats(ctx context.Context) (fleet.Stats, error)
	ListOpenTickets(ctx context.Context) ([]models.MaintenanceTicket, error)
}

type Handler struct {
	fleet FleetReader
}

func NewHandler(f FleetReader) *Handler {
	return &Handler{fleet: f}
}

// NewRouter wires the routes. Everything under /api needs a Bearer JWT
// signed with secret.
func NewRouter(h *Handler, secret string) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(bearerAuth(secret))
	api.HandleFunc("/drones", h.ListDrones).Methods(http.MethodGet)
	api.HandleFunc("/drones/search", h.SearchDrones).Methods(http.MethodGet)
	api.HandleFunc("/drones/{id:[0-9]+}/status", h.DroneStatus).Methods(http.MethodGet)
	api.HandleFunc("/drones/{id:[0-9]+}/missions", h.DroneMissions).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)
	api.HandleFunc("/tickets/open", h.OpenTickets).Methods(http.MethodGet)

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	return r
}

func bearerAuth(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := auth.ParseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, fleet.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// ListDrones handles GET /api/drones
func (h *Handler) ListDrones(w http.ResponseWriter, r *http.Request) {
	views, err := h.fleet.ListDrones(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if views == nil {
		views = []fleet.DroneView{}
	}
	respondJSON(w, http.StatusOK, views)
}

// SearchDrones handles GET /api/drones/search?capability=&model=&page_size=&after_id=
func (h *Handler) SearchDrones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := fleet.DroneFilter{
		Capability:    models.Capability(q.Get("capability")),
		ModelContains: q.Get("model"),
	}
	var err error
	if v := q.Get("page_size"); v != "" {
		if f.PageSize, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid page_size")
			return
		}
	}
	if v := q.Get("after_id"); v != "" {
		if f.AfterID, err = strconv.ParseInt(v, 10, 64); err != nil {
			respondError(w, http.StatusBadRequest, "invalid after_id")
			return
		}
	}
	views, err := h.fleet.SearchDrones(r.Context(), f)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if views == nil {
		views = []fleet.DroneView{}
	}
	respondJSON(w, http.StatusOK, views)
}

// DroneStatus handles GET /api/drones/{id}/status
func (h *Handler) DroneStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid drone id")
		return
	}
	st, err := h.fleet.EffectiveStatus(r.Context(), id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// DroneMissions handles GET /api/drones/{id}/missions?limit=
func (h *Handler) DroneMissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid drone id")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	list, err := h.fleet.MissionHistory(r.Context(), id, limit)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if list == nil {
		list = []models.Mission{}
	}
	respondJSON(w, http.StatusOK, list)
}

// Stats handles GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.fleet.Stats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// OpenTickets handles GET /api/tickets/open
func (h *Handler) OpenTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.fleet.ListOpenTickets(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if list == nil {
		list = []models.MaintenanceTicket{}
	}
	respondJSON(w, http.StatusOK, list)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

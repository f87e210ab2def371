package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"geodirectory-sync/internal/domain"
	"geodirectory-sync/internal/geodirectory"
	"geodirectory-sync/internal/middleware"
	"geodirectory-sync/internal/service"
	"geodirectory-sync/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type PlaceHandler struct {
	service  *service.PlaceService
	validate *validator.Validate
	logger   *log.Logger
}

func NewPlaceHandler(service *service.PlaceService, logger *log.Logger) *PlaceHandler {
	return &PlaceHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register mounts the place routes on r.
func (h *PlaceHandler) Register(r *mux.Router) {
	r.HandleFunc("/places", h.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/places", h.List).Methods("GET", "OPTIONS")
	r.HandleFunc("/places/{id}", h.Get).Methods("GET", "OPTIONS")
	r.HandleFunc("/places/{id}", h.Update).Methods("PUT", "OPTIONS")
	r.HandleFunc("/places/{id}", h.Delete).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/places/{id}/refresh", h.Refresh).Methods("POST", "OPTIONS")
	r.HandleFunc("/places/{id}/detach", h.Detach).Methods("POST", "OPTIONS")
	r.HandleFunc("/places/{id}/closest", h.Closest).Methods("GET", "OPTIONS")
}

func (h *PlaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	place, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to create place")
		return
	}

	response.Created(w, place)
}

func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	places, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "Failed to list places")
		return
	}

	response.Success(w, places)
}

func (h *PlaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	place, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to get place")
		return
	}

	response.Success(w, place)
}

func (h *PlaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	place, err := h.service.Update(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeError(w, r, err, "Failed to update place")
		return
	}

	response.Success(w, place)
}

func (h *PlaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err, "Failed to delete place")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	place, err := h.service.Refresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to refresh place")
		return
	}

	response.Success(w, place)
}

func (h *PlaceHandler) Detach(w http.ResponseWriter, r *http.Request) {
	place, err := h.service.Detach(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err, "Failed to detach place")
		return
	}

	response.Success(w, place)
}

func (h *PlaceHandler) Closest(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query()["tags"]

	closest, err := h.service.Closest(r.Context(), mux.Vars(r)["id"], filter)
	if err != nil {
		h.writeError(w, r, err, "Failed to find closest entry")
		return
	}

	response.Success(w, closest)
}

func (h *PlaceHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Place not found")
	case errors.Is(err, service.ErrRemoteIDInUse), errors.Is(err, service.ErrNotLinked):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrSyncDisabled):
		response.ServiceUnavailable(w, err.Error())
	case geodirectory.IsTransportError(err):
		h.logger.Printf("%s (client=%q): %v", fallback, middleware.GetClientID(r), err)
		response.BadGateway(w, "Geo-directory request failed")
	default:
		h.logger.Printf("%s (client=%q): %v", fallback, middleware.GetClientID(r), err)
		response.InternalError(w, fallback)
	}
}

package handler

import (
	"net/http"

	"keiteki/internal/bikes/service"
	httputil "keiteki/pkg/http"
	"keiteki/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BikeHandler struct {
	service service.BikeService
	log     *logger.Logger
}

func NewBikeHandler(service service.BikeService, log *logger.Logger) *BikeHandler {
	return &BikeHandler{
		service: service,
		log:     log,
	}
}

func (h *BikeHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bikes, err := h.service.GetAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bikes); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BikeHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	bike, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, bike); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BikeHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bikes", h.GetAll)
	router.GET("/api/v1/bikes/:id", h.GetByID)
}

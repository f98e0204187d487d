package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"keiteki/internal/rentals/service"
	apperrors "keiteki/pkg/errors"
	httputil "keiteki/pkg/http"
	"keiteki/pkg/logger"
	"keiteki/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RentalHandler struct {
	service service.RentalService
	log     *logger.Logger
}

func NewRentalHandler(service service.RentalService, log *logger.Logger) *RentalHandler {
	return &RentalHandler{
		service: service,
		log:     log,
	}
}

// Act is the single kiosk endpoint: one POST carries both checkouts
// and returns, distinguished by the action field.
func (h *RentalHandler) Act(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Act", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	switch req.Action {
	case model.ActionStart:
		rental, err := h.service.Start(r.Context(), &req)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Act", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		if err := httputil.WriteCreated(w, rental); err != nil {
			h.log.Error("failed to write created response", "handler", "Act", "operation", "WriteCreated", "error", err)
		}

	case model.ActionEnd:
		result, err := h.service.End(r.Context(), &req)
		if err != nil {
			if writeErr := httputil.WriteError(w, err); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Act", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		if err := httputil.WriteSuccess(w, result); err != nil {
			h.log.Error("failed to write success response", "handler", "Act", "operation", "WriteSuccess", "error", err)
		}

	default:
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput(fmt.Sprintf("unknown action: %q", req.Action))); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Act", "operation", "WriteError", "error", writeErr)
		}
	}
}

func (h *RentalHandler) Current(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rentals, err := h.service.Current(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Current", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rentals); err != nil {
		h.log.Error("failed to write success response", "handler", "Current", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RentalHandler) Usage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	usages, err := h.service.Usage(r.Context(), ps.ByName("residentKey"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Usage", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, usages); err != nil {
		h.log.Error("failed to write success response", "handler", "Usage", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RentalHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rentals", h.Act)
	router.GET("/api/v1/rentals/current", h.Current)
	router.GET("/api/v1/usage/:residentKey", h.Usage)
}

package handler

import (
	"encoding/json"
	"net/http"

	"keiteki/internal/residents/service"
	httputil "keiteki/pkg/http"
	"keiteki/pkg/logger"
	"keiteki/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ResidentHandler struct {
	service service.ResidentService
	log     *logger.Logger
}

func NewResidentHandler(service service.ResidentService, log *logger.Logger) *ResidentHandler {
	return &ResidentHandler{
		service: service,
		log:     log,
	}
}

func (h *ResidentHandler) Register(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	yearMonth := ps.ByName("yearMonth")

	var reg model.ResidentRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Register", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	resident, err := h.service.Register(r.Context(), yearMonth, &reg)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Register", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, resident); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *ResidentHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	yearMonth := ps.ByName("yearMonth")

	residents, err := h.service.List(r.Context(), yearMonth)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, residents); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ResidentHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resident, err := h.service.Get(r.Context(), ps.ByName("yearMonth"), ps.ByName("residentKey"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, resident); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ResidentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/residents/:yearMonth", h.Register)
	router.GET("/api/v1/residents/:yearMonth", h.List)
	router.GET("/api/v1/residents/:yearMonth/:residentKey", h.Get)
}

package handler

import (
	"fmt"
	"net/http"

	"keiteki/internal/billing/service"
	httputil "keiteki/pkg/http"
	"keiteki/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BillingHandler struct {
	ledger service.BillingLedger
	log    *logger.Logger
}

func NewBillingHandler(ledger service.BillingLedger, log *logger.Logger) *BillingHandler {
	return &BillingHandler{
		ledger: ledger,
		log:    log,
	}
}

func (h *BillingHandler) GetStatement(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	yearMonth := ps.ByName("yearMonth")

	records, err := h.ledger.Statement(r.Context(), yearMonth)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetStatement", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, records); err != nil {
		h.log.Error("failed to write success response", "handler", "GetStatement", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BillingHandler) ExportCSV(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	yearMonth := ps.ByName("yearMonth")

	data, err := h.ledger.StatementCSV(r.Context(), yearMonth)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ExportCSV", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="billing_%s.csv"`, yearMonth))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Error("failed to write CSV response", "handler", "ExportCSV", "error", err)
	}
}

func (h *BillingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/billing/:yearMonth", h.GetStatement)
	router.GET("/api/v1/billing/:yearMonth/csv", h.ExportCSV)
}

package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"repairdesk/internal/slots/service"
	apperrors "repairdesk/pkg/errors"
	httputil "repairdesk/pkg/http"
	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

type generateRequest struct {
	Date string `json:"date"`
}

type blockRequest struct {
	Blocked *bool `json:"blocked"`
}

func (h *SlotHandler) FindAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	tier := query.Get("serviceTier")
	if tier == "" {
		tier = query.Get("service_tier")
	}
	if tier == "" {
		tier = string(model.TierStandard)
	}

	slots, err := h.service.FindAvailable(r.Context(), query.Get("date"), model.ServiceTier(tier))
	if err != nil {
		h.writeError(w, "FindAvailable", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "FindAvailable", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetSlot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GenerateDay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req generateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "GenerateDay", err)
		return
	}

	slots, err := h.service.GenerateDay(r.Context(), req.Date)
	if err != nil {
		h.writeError(w, "GenerateDay", err)
		return
	}

	if err := httputil.WriteCreated(w, slots); err != nil {
		h.log.Error("failed to write created response", "handler", "GenerateDay", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) SetBlocked(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req blockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "SetBlocked", err)
		return
	}
	if req.Blocked == nil {
		h.writeError(w, "SetBlocked", apperrors.InvalidInput("blocked is required"))
		return
	}

	slot, err := h.service.SetBlocked(r.Context(), ps.ByName("id"), *req.Blocked)
	if err != nil {
		h.writeError(w, "SetBlocked", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "SetBlocked", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) UpsertSpecialDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var sd model.SpecialDate
	if err := httputil.DecodeJSON(r, &sd); err != nil {
		h.writeError(w, "UpsertSpecialDate", err)
		return
	}
	sd.Date = ps.ByName("date")

	saved, err := h.service.UpsertSpecialDate(r.Context(), &sd)
	if err != nil {
		h.writeError(w, "UpsertSpecialDate", err)
		return
	}

	if err := httputil.WriteSuccess(w, saved); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertSpecialDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) GetSpecialDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sd, err := h.service.GetSpecialDate(r.Context(), ps.ByName("date"))
	if err != nil {
		h.writeError(w, "GetSpecialDate", err)
		return
	}

	if err := httputil.WriteSuccess(w, sd); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSpecialDate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability", h.FindAvailable)
	router.POST("/api/v1/availability/generate", h.GenerateDay)
	router.GET("/api/v1/availability/slots/:id", h.GetSlot)
	router.PUT("/api/v1/availability/slots/:id/block", h.SetBlocked)
	router.GET("/api/v1/special-dates/:date", h.GetSpecialDate)
	router.PUT("/api/v1/special-dates/:date", h.UpsertSpecialDate)
}

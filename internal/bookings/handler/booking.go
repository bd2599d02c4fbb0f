package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"repairdesk/internal/bookings/service"
	apperrors "repairdesk/pkg/errors"
	httputil "repairdesk/pkg/http"
	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.QuoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.TransitionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	booking, err := h.service.Transition(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "GetByID", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByNumber(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByNumber(r.Context(), ps.ByName("number"))
	if err != nil {
		h.writeError(w, "GetByNumber", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByNumber", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListByCustomer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByCustomer", err)
		return
	}

	bookings, totalCount, err := h.service.ListByCustomer(r.Context(), r.URL.Query().Get("customer_id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByCustomer", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByCustomer", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	history, err := h.service.History(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "History", err)
		return
	}

	if err := httputil.WriteSuccess(w, history); err != nil {
		h.log.Error("failed to write success response", "handler", "History", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) AcceptTerms(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.AcceptTerms(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "AcceptTerms", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "AcceptTerms", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateProgress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ProgressRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpdateProgress", err)
		return
	}

	booking, err := h.service.UpdateProgress(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "UpdateProgress", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateProgress", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Requote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Requote(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Requote", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Requote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/quote", h.Quote)
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.ListByCustomer)
	router.GET("/api/v1/bookings/number/:number", h.GetByNumber)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.GET("/api/v1/bookings/id/:id/transitions", h.History)
	router.PUT("/api/v1/bookings/id/:id/status", h.Transition)
	router.PUT("/api/v1/bookings/id/:id/terms", h.AcceptTerms)
	router.PUT("/api/v1/bookings/id/:id/progress", h.UpdateProgress)
	router.POST("/api/v1/bookings/id/:id/requote", h.Requote)
}

package calculation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/platform/httpx"
)

// Handler manages calculation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers calculation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/hotchpot", h.hotchpot)
	r.Post("/dependants", h.dependants)
	r.Post("/section35", h.section35)
	r.Post("/section40", h.section40)
	r.Post("/settlement", h.settlement)
	r.Get("/history", h.history)
	r.Post("/invalidate", h.invalidate)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		var verr estate.ValidationErrors
		if fields, ok := err.(validator.ValidationErrors); ok {
			for _, f := range fields {
				verr.Addf(f.Field(), "failed %s validation", f.Tag())
			}
		} else {
			verr.Add("", err.Error())
		}
		httpx.ValidationProblem(w, &verr)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, kind string, result any, err error) {
	if err != nil {
		if !estate.IsValidation(err) {
			h.logger.Error("calculation failed", slog.String("kind", kind), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) hotchpot(w http.ResponseWriter, r *http.Request) {
	var req HotchpotRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Hotchpot(r.Context(), req)
	h.respond(w, KindHotchpot, result, err)
}

func (h *Handler) dependants(w http.ResponseWriter, r *http.Request) {
	var req DependantsRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Dependants(r.Context(), req)
	h.respond(w, KindDependants, result, err)
}

func (h *Handler) section35(w http.ResponseWriter, r *http.Request) {
	var req Section35Request
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Section35(r.Context(), req)
	h.respond(w, KindSection35, result, err)
}

func (h *Handler) section40(w http.ResponseWriter, r *http.Request) {
	var req Section40Request
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Section40(r.Context(), req)
	h.respond(w, KindSection40, result, err)
}

func (h *Handler) settlement(w http.ResponseWriter, r *http.Request) {
	var req SettlementRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Settlement(r.Context(), req)
	h.respond(w, KindSettlement, result, err)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	estateID, err := uuid.Parse(r.URL.Query().Get("estate_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "estate_id query parameter required")
		return
	}
	snaps, err := h.service.History(r.Context(), estateID, r.URL.Query().Get("kind"))
	if err != nil {
		h.logger.Error("calculation history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if snaps == nil {
		snaps = []Snapshot{}
	}
	httpx.JSON(w, http.StatusOK, snaps)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate calculation cache", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

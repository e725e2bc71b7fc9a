package debts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mirathi/mirathi/internal/estate"
	"github.com/mirathi/mirathi/internal/estate/debt"
	"github.com/mirathi/mirathi/internal/platform/httpx"
)

// Handler manages debt endpoints.
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

// MountRoutes registers debt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/{id}", h.get)
	r.Get("/", h.listByEstate)
	r.Post("/{id}/payments", h.recordPayment)
	r.Post("/{id}/verify", h.verify)
	r.Post("/{id}/write-off", h.writeOff)
	r.Post("/{id}/disputes", h.raiseDispute)
	r.Post("/{id}/disputes/resolve", h.resolveDispute)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/reclassify", h.reclassify)
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

func (h *Handler) claimID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "invalid debt ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterDebtRequest
	if !h.decode(w, r, &req) {
		return
	}
	input, err := req.ToInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.logger.Error("register debt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewDebtResponse(d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) listByEstate(w http.ResponseWriter, r *http.Request) {
	estateID, err := uuid.Parse(r.URL.Query().Get("estate_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", "estate_id query parameter required")
		return
	}
	claims, err := h.service.ListByEstate(r.Context(), estateID)
	if err != nil {
		h.logger.Error("list debts", slog.Any("error", err), slog.String("estate_id", estateID.String()))
		httpx.RespondError(w, err)
		return
	}
	out := make([]DebtResponse, 0, len(claims))
	for _, d := range claims {
		out = append(out, NewDebtResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := req.Amount.ToMoney()
	if err != nil {
		var verr estate.ValidationErrors
		verr.Addf("amount", "invalid amount: %v", err)
		httpx.ValidationProblem(w, &verr)
		return
	}
	d, receipt, err := h.service.RecordPayment(r.Context(), id, debt.PaymentInput{
		Amount:    amount,
		PaidAt:    req.PaidAt,
		Method:    req.Method,
		Reference: req.Reference,
		Note:      req.Note,
	})
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.String("debt_id", id.String()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"debt":    NewDebtResponse(d),
		"payment": receipt.Payment,
		"warning": receipt.Warning,
	})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req VerifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.Verify(r.Context(), id, req.VerifiedBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req WriteOffRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.WriteOff(r.Context(), id, req.Reason, req.ApprovalReference, req.WrittenOffBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req DisputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.RaiseDispute(r.Context(), id, req.Reason, req.RaisedBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req ResolveDisputeRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.ResolveDispute(r.Context(), id, debt.DisputeOutcome(req.Outcome), req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.RejectClaim(r.Context(), id, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

func (h *Handler) reclassify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.claimID(w, r)
	if !ok {
		return
	}
	var req ReclassifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.service.Reclassify(r.Context(), id, debt.Tier(req.Tier))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDebtResponse(d))
}

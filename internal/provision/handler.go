package provision

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/rentledger/rentledger/internal/ledger"
	"github.com/rentledger/rentledger/internal/platform/httpx"
)

// Handler exposes provision estimation and posting over HTTP.
type Handler struct {
	calculator *Calculator
	poster     *Poster
	cache      *Cache
	logger     *slog.Logger
	validate   *validator.Validate
	group      singleflight.Group
}

// NewHandler constructs the provision handler. Cache may be nil.
func NewHandler(logger *slog.Logger, calculator *Calculator, poster *Poster, cache *Cache) *Handler {
	return &Handler{
		calculator: calculator,
		poster:     poster,
		cache:      cache,
		logger:     logger,
		validate:   validator.New(),
	}
}

// MountRoutes attaches provision routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/provision/recommendation", h.Recommendation)
	r.Post("/provision", h.CreateProvision)
	r.Post("/write-offs", h.WriteOff)
}

// Recommendation serves the aging-based estimate. Concurrent requests for
// the same tenant share one computation via singleflight; results are held
// in Redis for the configured TTL.
func (h *Handler) Recommendation(w http.ResponseWriter, r *http.Request) {
	tenantID, err := ledger.TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	ctx := r.Context()
	if rec, ok, err := h.cache.Get(ctx, tenantID); err != nil {
		h.logger.Warn("provision cache read", slog.Any("error", err))
	} else if ok {
		httpx.JSON(w, http.StatusOK, rec)
		return
	}
	result, err, _ := h.group.Do(tenantID.String(), func() (any, error) {
		rec, err := h.calculator.Recommend(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if err := h.cache.Set(ctx, tenantID, rec); err != nil {
			h.logger.Warn("provision cache write", slog.Any("error", err))
		}
		return rec, nil
	})
	if err != nil {
		h.logger.Error("provision recommendation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result.(Recommendation))
}

type createProvisionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required"`
}

func (h *Handler) CreateProvision(w http.ResponseWriter, r *http.Request) {
	tenantID, err := ledger.TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	var req createProvisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.poster.CreateProvision(r.Context(), tenantID, req.Amount, req.Description)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	if err := h.cache.Invalidate(r.Context(), tenantID); err != nil {
		h.logger.Warn("provision cache invalidate", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"journal_entry_id": entry.ID,
		"entry_number":     entry.Number.String(),
	})
}

type writeOffRequest struct {
	CustomerID  string          `json:"customer_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required"`
}

func (h *Handler) WriteOff(w http.ResponseWriter, r *http.Request) {
	tenantID, err := ledger.TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	var req writeOffRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Customer", err.Error())
		return
	}
	entry, err := h.poster.WriteOff(r.Context(), tenantID, customerID, req.Amount, req.Description)
	if err != nil {
		h.respondPostingError(w, err)
		return
	}
	if err := h.cache.Invalidate(r.Context(), tenantID); err != nil {
		h.logger.Warn("provision cache invalidate", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"journal_entry_id": entry.ID,
		"entry_number":     entry.Number.String(),
	})
}

func (h *Handler) respondPostingError(w http.ResponseWriter, err error) {
	var missing *ledger.MissingAccountsError
	switch {
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Amount", err.Error())
	case errors.As(err, &missing):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Accounts", missing.Error())
	default:
		h.logger.Error("provision posting", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

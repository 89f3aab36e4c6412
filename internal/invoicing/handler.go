package invoicing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/ledger"
	"github.com/rentledger/rentledger/internal/platform/httpx"
)

// BackfillEnqueuer submits a backfill run to the background queue.
type BackfillEnqueuer interface {
	EnqueueBackfill(ctx context.Context, tenantID uuid.UUID, batchSize int) (string, error)
}

// Handler exposes invoice linking and backfill over HTTP.
type Handler struct {
	service  *Service
	enqueuer BackfillEnqueuer
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the invoicing handler. The enqueuer may be nil, in
// which case backfill requests run synchronously.
func NewHandler(logger *slog.Logger, service *Service, enqueuer BackfillEnqueuer) *Handler {
	return &Handler{service: service, enqueuer: enqueuer, logger: logger, validate: validator.New()}
}

// MountRoutes attaches invoicing routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/{invoiceID}/journal", h.Link)
	r.Post("/backfill", h.Backfill)
}

func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	tenantID, err := ledger.TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Invoice", err.Error())
		return
	}
	entryID, err := h.service.LinkInvoiceByID(r.Context(), tenantID, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ledger.ErrInvoiceNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		case errors.Is(err, ledger.ErrAlreadyLinked):
			httpx.Problem(w, http.StatusConflict, "Already Linked", err.Error())
		default:
			var missing *ledger.MissingAccountsError
			if errors.As(err, &missing) {
				httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Accounts", missing.Error())
				return
			}
			h.logger.Error("link invoice", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"journal_entry_id": entryID})
}

type backfillRequest struct {
	BatchSize int  `json:"batch_size" validate:"omitempty,min=1,max=1000"`
	Sync      bool `json:"sync"`
}

func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	tenantID, err := ledger.TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	var req backfillRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	if h.enqueuer != nil && !req.Sync {
		taskID, err := h.enqueuer.EnqueueBackfill(r.Context(), tenantID, req.BatchSize)
		if err != nil {
			h.logger.Error("enqueue backfill", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
		return
	}
	result, err := h.service.Backfill(r.Context(), tenantID, req.BatchSize)
	if err != nil {
		h.logger.Error("backfill", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

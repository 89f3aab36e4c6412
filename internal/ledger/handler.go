package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentledger/rentledger/internal/platform/httpx"
)

// Handler exposes the ledger over HTTP.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger, validate: validator.New()}
}

// MountRoutes attaches ledger routes under a tenant scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.List)
	r.Post("/entries", h.Post)
	r.Get("/entries/{entryID}", h.Get)
}

type postLineRequest struct {
	AccountID     string          `json:"account_id" validate:"required,uuid"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id" validate:"omitempty,uuid"`
}

type postEntryRequest struct {
	Date          string            `json:"entry_date" validate:"required,datetime=2006-01-02"`
	Description   string            `json:"description" validate:"required"`
	ReferenceType string            `json:"reference_type"`
	ReferenceID   string            `json:"reference_id" validate:"omitempty,uuid"`
	Lines         []postLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type entryResponse struct {
	ID          uuid.UUID      `json:"id"`
	Number      string         `json:"entry_number"`
	Date        string         `json:"entry_date"`
	Status      JournalStatus  `json:"status"`
	Description string         `json:"description"`
	TotalDebit  string         `json:"total_debit"`
	TotalCredit string         `json:"total_credit"`
	Lines       []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	LineNumber  int       `json:"line_number"`
	AccountID   uuid.UUID `json:"account_id"`
	Debit       string    `json:"debit"`
	Credit      string    `json:"credit"`
	Description string    `json:"description"`
}

func toEntryResponse(e JournalEntry) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		Number:      e.Number.String(),
		Date:        e.Date.Format("2006-01-02"),
		Status:      e.Status,
		Description: e.Description,
		TotalDebit:  e.TotalDebit.StringFixed(2),
		TotalCredit: e.TotalCredit.StringFixed(2),
	}
	for _, line := range e.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			LineNumber:  line.LineNumber,
			AccountID:   line.AccountID,
			Debit:       line.Debit.StringFixed(2),
			Credit:      line.Credit.StringFixed(2),
			Description: line.Description,
		})
	}
	return resp
}

// TenantID extracts the tenant route parameter.
func TenantID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "tenantID"))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	entries, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Entry", err.Error())
		return
	}
	entry, err := h.service.Get(r.Context(), tenantID, entryID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	tenantID, err := TenantID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", err.Error())
		return
	}
	var req postEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := toPostingInput(tenantID, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	entry, err := h.service.Post(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrUnbalanced) || errors.Is(err, ErrTooFewLines) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
			return
		}
		h.logger.Error("post entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func toPostingInput(tenantID uuid.UUID, req postEntryRequest) (PostingInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return PostingInput{}, err
	}
	input := PostingInput{
		TenantID:      tenantID,
		Date:          date,
		Description:   req.Description,
		ReferenceType: req.ReferenceType,
	}
	if req.ReferenceID != "" {
		input.ReferenceID, err = uuid.Parse(req.ReferenceID)
		if err != nil {
			return PostingInput{}, err
		}
	}
	for _, line := range req.Lines {
		accountID, err := uuid.Parse(line.AccountID)
		if err != nil {
			return PostingInput{}, err
		}
		in := PostingLineInput{
			AccountID:     accountID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Description:   line.Description,
			ReferenceType: line.ReferenceType,
		}
		if line.ReferenceID != "" {
			in.ReferenceID, err = uuid.Parse(line.ReferenceID)
			if err != nil {
				return PostingInput{}, err
			}
		}
		input.Lines = append(input.Lines, in)
	}
	return input, nil
}

package ledger

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo Repository) chi.Router {
	svc := NewService(repo, testLogger())
	handler := NewHandler(testLogger(), svc)
	r := chi.NewRouter()
	r.Route("/api/v1/tenants/{tenantID}", handler.MountRoutes)
	return r
}

func postEntryBody(debit, credit string) string {
	return fmt.Sprintf(`{
		"entry_date": "2026-03-10",
		"description": "Rental invoice ACME Corp",
		"lines": [
			{"account_id": %q, "debit": %q},
			{"account_id": %q, "credit": %q}
		]
	}`, uuid.New(), debit, uuid.New(), credit)
}

func TestHandlerPostEntry(t *testing.T) {
	router := newTestRouter(newMemoryLedgerRepo())
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/"+tenantID.String()+"/entries",
		strings.NewReader(postEntryBody("1500.00", "1500.00")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"entry_number":"000001"`)
	require.Contains(t, rec.Body.String(), `"total_debit":"1500.00"`)
}

func TestHandlerPostEntryUnbalanced(t *testing.T) {
	router := newTestRouter(newMemoryLedgerRepo())
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/"+tenantID.String()+"/entries",
		strings.NewReader(postEntryBody("1500.00", "1400.00")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerPostEntryRejectsSingleLine(t *testing.T) {
	router := newTestRouter(newMemoryLedgerRepo())
	tenantID := uuid.New()
	body := fmt.Sprintf(`{"entry_date":"2026-03-10","description":"x","lines":[{"account_id":%q,"debit":"10.00"}]}`, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/"+tenantID.String()+"/entries", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetEntryNotFound(t *testing.T) {
	router := newTestRouter(newMemoryLedgerRepo())
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+tenantID.String()+"/entries/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerInvalidTenant(t *testing.T) {
	router := newTestRouter(newMemoryLedgerRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/not-a-uuid/entries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

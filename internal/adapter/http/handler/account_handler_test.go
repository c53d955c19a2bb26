package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type accountServiceStub struct {
	openFn     func(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	getFn      func(ctx context.Context, id string) (*domain.Account, error)
	byOwnerFn  func(ctx context.Context, ownerID string) ([]*domain.Account, error)
	listFn     func(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	freezeFn   func(ctx context.Context, id string) (*domain.Account, error)
	unfreezeFn func(ctx context.Context, id string) (*domain.Account, error)
	closeFn    func(ctx context.Context, id string) (*domain.Account, error)
	auditFn    func(ctx context.Context, id string) ([]*domain.AuditLog, error)
	eventsFn   func(ctx context.Context, id string, input usecase.ListAccountsInput) ([]*domain.OutboxEvent, error)
}

func (s *accountServiceStub) OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error) {
	return s.openFn(ctx, input)
}

func (s *accountServiceStub) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.getFn(ctx, id)
}

func (s *accountServiceStub) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	return s.byOwnerFn(ctx, ownerID)
}

func (s *accountServiceStub) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
	return s.listFn(ctx, input)
}

func (s *accountServiceStub) FreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.freezeFn(ctx, id)
}

func (s *accountServiceStub) UnfreezeAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.unfreezeFn(ctx, id)
}

func (s *accountServiceStub) CloseAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.closeFn(ctx, id)
}

func (s *accountServiceStub) GetAuditTrail(ctx context.Context, id string) ([]*domain.AuditLog, error) {
	return s.auditFn(ctx, id)
}

func (s *accountServiceStub) ListEvents(ctx context.Context, id string, input usecase.ListAccountsInput) ([]*domain.OutboxEvent, error) {
	return s.eventsFn(ctx, id, input)
}

func testAccount(id string) *domain.Account {
	return &domain.Account{
		ID:            id,
		OwnerID:       "user-1",
		AccountNumber: "123456789012",
		Currency:      "INR",
		Balance:       decimal.NewFromInt(100),
		Status:        domain.AccountStatusActive,
	}
}

func TestAccountHandler_Open_Success(t *testing.T) {
	var captured usecase.OpenAccountInput
	handler := NewAccountHandler(&accountServiceStub{
		openFn: func(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error) {
			captured = input
			return testAccount("acc-1"), nil
		},
	})

	body, _ := json.Marshal(dto.OpenAccountRequest{OwnerID: "user-1", Currency: "INR"})
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Open(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.OwnerID != "user-1" || captured.Currency != "INR" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}

	var resp dto.AccountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "acc-1" || resp.Status != "ACTIVE" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAccountHandler_Open_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{invalid json"},
		{"missing owner", `{"currency":"INR"}`},
		{"unknown field", `{"owner_id":"u","overdraft":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAccountHandler(&accountServiceStub{
				openFn: func(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error) {
					t.Fatal("OpenAccount should not be called for invalid payload")
					return nil, nil
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.Open(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAccountHandler_Open_ServiceError(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		openFn: func(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error) {
			return nil, errors.New("db error")
		},
	})

	body, _ := json.Marshal(dto.OpenAccountRequest{OwnerID: "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Open(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAccountHandler_Get(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Account, error) {
			if id != "acc-1" {
				t.Fatalf("unexpected id %s", id)
			}
			return testAccount(id), nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1", nil), "id", "acc-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Account, error) {
			return nil, domain.ErrAccountNotFound
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != CodeNotFound {
		t.Fatalf("expected code %s, got %+v", CodeNotFound, resp)
	}
}

func TestAccountHandler_List(t *testing.T) {
	t.Run("paged", func(t *testing.T) {
		var captured usecase.ListAccountsInput
		handler := NewAccountHandler(&accountServiceStub{
			listFn: func(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error) {
				captured = input
				return []*domain.Account{testAccount("a"), testAccount("b")}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/accounts?limit=5&offset=10", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured.Limit != 5 || captured.Offset != 10 {
			t.Fatalf("expected pagination to be forwarded, got %+v", captured)
		}

		var resp dto.ListAccountsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != 2 {
			t.Fatalf("expected 2 accounts, got %d", resp.Total)
		}
	})

	t.Run("by owner", func(t *testing.T) {
		handler := NewAccountHandler(&accountServiceStub{
			byOwnerFn: func(ctx context.Context, ownerID string) ([]*domain.Account, error) {
				if ownerID != "user-1" {
					t.Fatalf("unexpected owner %s", ownerID)
				}
				return []*domain.Account{testAccount("a")}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/accounts?owner_id=user-1", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_StatusChanges(t *testing.T) {
	stub := &accountServiceStub{
		freezeFn: func(ctx context.Context, id string) (*domain.Account, error) {
			acc := testAccount(id)
			acc.Status = domain.AccountStatusFrozen
			return acc, nil
		},
		unfreezeFn: func(ctx context.Context, id string) (*domain.Account, error) {
			return nil, domain.ErrInvalidStatusTransition
		},
		closeFn: func(ctx context.Context, id string) (*domain.Account, error) {
			return nil, domain.ErrAccountNotEmpty
		},
	}
	handler := NewAccountHandler(stub)

	tests := []struct {
		name       string
		call       http.HandlerFunc
		wantStatus int
	}{
		{"freeze", handler.Freeze, http.StatusOK},
		{"unfreeze active account", handler.Unfreeze, http.StatusConflict},
		{"close with balance", handler.Close, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/acc-1/x", nil), "id", "acc-1")
			rec := httptest.NewRecorder()

			tt.call(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}

func TestAccountHandler_AuditTrail(t *testing.T) {
	handler := NewAccountHandler(&accountServiceStub{
		auditFn: func(ctx context.Context, id string) ([]*domain.AuditLog, error) {
			if id != "acc-1" {
				return nil, domain.ErrAccountNotFound
			}
			return []*domain.AuditLog{{
				ID:         "log-1",
				UserID:     "ops-1",
				Action:     string(domain.AuditActionAccountFreeze),
				AfterState: domain.JSON{"Status": "FROZEN"},
				Status:     string(domain.AuditStatusSuccess),
			}}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/audit", nil), "id", "acc-1")
	rec := httptest.NewRecorder()
	handler.AuditTrail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var logs []dto.AuditLogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "account.freeze" || logs[0].AfterState["Status"] != "FROZEN" {
		t.Fatalf("unexpected audit trail: %+v", logs)
	}

	req = setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/missing/audit", nil), "id", "missing")
	rec = httptest.NewRecorder()
	handler.AuditTrail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountHandler_Events(t *testing.T) {
	var captured usecase.ListAccountsInput
	handler := NewAccountHandler(&accountServiceStub{
		eventsFn: func(ctx context.Context, id string, input usecase.ListAccountsInput) ([]*domain.OutboxEvent, error) {
			captured = input
			return []*domain.OutboxEvent{{
				ID:        "evt-1",
				EventType: domain.EventTypeAccountOpened,
				Payload:   map[string]any{"account_id": id},
			}}, nil
		},
	})

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/acc-1/events?limit=5&offset=10", nil), "id", "acc-1")
	rec := httptest.NewRecorder()
	handler.Events(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Limit != 5 || captured.Offset != 10 {
		t.Fatalf("unexpected pagination: %+v", captured)
	}

	var events []dto.EventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "account.opened" || events[0].Published {
		t.Fatalf("unexpected events: %+v", events)
	}
}

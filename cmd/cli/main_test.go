package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}))

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestTransferGeneratesIdempotencyKey(t *testing.T) {
	var got dto.TransferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.TransactionResponse{
			ID:             "txn-1",
			IdempotencyKey: got.IdempotencyKey,
			Type:           "TRANSFER",
			Status:         "COMPLETED",
			Amount:         decimal.RequireFromString("12.50"),
			Currency:       "INR",
		})
	}))
	defer srv.Close()

	out, errOut, err := execute(t,
		"--url", srv.URL, "--token", "secret-token",
		"transfer", "--from", "acc-1", "--to", "bob", "--amount", "12.50",
	)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", got.SourceAccountID)
	assert.Equal(t, "bob", got.Destination)
	assert.Equal(t, "12.50", got.Amount)
	require.NotEmpty(t, got.IdempotencyKey)
	assert.Contains(t, errOut, got.IdempotencyKey)
	assert.Contains(t, out, `"status": "COMPLETED"`)
}

func TestFailedWithdrawalPrintsTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
			Error: "insufficient funds",
			Code:  "insufficient_funds",
			Transaction: &dto.TransactionResponse{
				ID:          "txn-2",
				Status:      "FAILED",
				FailureCode: "insufficient_funds",
			},
		})
	}))
	defer srv.Close()

	out, _, err := execute(t, "--url", srv.URL,
		"withdraw", "--account", "acc-1", "--amount", "999", "--key", "w-1")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Contains(t, out, `"status": "FAILED"`)
}

func TestLedgerConsistency(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ledger/consistency", r.URL.Path)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(dto.LedgerConsistencyResponse{
			Consistent:      status == http.StatusOK,
			TotalBalance:    decimal.NewFromInt(90),
			NetExternalFlow: decimal.NewFromInt(90),
		})
	}))
	defer srv.Close()

	out, _, err := execute(t, "--url", srv.URL, "ledger", "consistency")
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")
	assert.Contains(t, out, "90.00")

	status = http.StatusConflict
	out, _, err = execute(t, "--url", srv.URL, "ledger", "consistency")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILED")
	assert.Contains(t, out, "Total balance")
}

func TestAccountListPrintsTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("owner_id"))
		_ = json.NewEncoder(w).Encode(dto.ListAccountsResponse{
			Accounts: []*dto.AccountResponse{{
				ID:            "acc-1",
				OwnerID:       "alice",
				AccountNumber: "100200300",
				Currency:      "INR",
				Balance:       decimal.RequireFromString("70"),
				Status:        "ACTIVE",
			}},
			Total: 1,
		})
	}))
	defer srv.Close()

	out, _, err := execute(t, "--url", srv.URL, "account", "list", "--owner", "alice")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "BALANCE")
	assert.Contains(t, lines[1], "70.00 INR")
}

func TestTokenCmdMintsVerifiableToken(t *testing.T) {
	out, _, err := execute(t, "token", "--secret", "s3cret", "--owner", "ops-1", "--role", "operator", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.Subject)
	assert.Equal(t, domain.RoleOperator, claims.Role)
}

func TestTokenCmdRejectsUnknownRole(t *testing.T) {
	_, _, err := execute(t, "token", "--secret", "s3cret", "--owner", "ops-1", "--role", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, _, err := execute(t, "migrate", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lowkeylabs/guildbank/internal/adapter/http/dto"
	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

type balanceServiceStub struct {
	creditFn   func(ctx context.Context, input usecase.CreditInput) error
	debitFn    func(ctx context.Context, input usecase.DebitInput) error
	transferFn func(ctx context.Context, input usecase.TransferInput) error
	depositFn  func(ctx context.Context, userID, amount int64) error
	withdrawFn func(ctx context.Context, userID, amount int64) error
	getFn      func(ctx context.Context, userID int64) (*domain.Account, error)
	listFn     func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
	verifyFn   func(ctx context.Context, userID int64) (bool, int64, int64, error)
	topFn      func(ctx context.Context, limit int) ([]*domain.Account, error)
}

func (s *balanceServiceStub) Credit(ctx context.Context, input usecase.CreditInput) error {
	return s.creditFn(ctx, input)
}

func (s *balanceServiceStub) Debit(ctx context.Context, input usecase.DebitInput) error {
	return s.debitFn(ctx, input)
}

func (s *balanceServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) error {
	return s.transferFn(ctx, input)
}

func (s *balanceServiceStub) Deposit(ctx context.Context, userID, amount int64) error {
	return s.depositFn(ctx, userID, amount)
}

func (s *balanceServiceStub) Withdraw(ctx context.Context, userID, amount int64) error {
	return s.withdrawFn(ctx, userID, amount)
}

func (s *balanceServiceStub) GetBalance(ctx context.Context, userID int64) (*domain.Account, error) {
	return s.getFn(ctx, userID)
}

func (s *balanceServiceStub) ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error) {
	return s.listFn(ctx, input)
}

func (s *balanceServiceStub) VerifyLedger(ctx context.Context, userID int64) (bool, int64, int64, error) {
	return s.verifyFn(ctx, userID)
}

func (s *balanceServiceStub) TopWallets(ctx context.Context, limit int) ([]*domain.Account, error) {
	return s.topFn(ctx, limit)
}

func newBalanceStub() *balanceServiceStub {
	return &balanceServiceStub{
		creditFn:   func(ctx context.Context, input usecase.CreditInput) error { return nil },
		debitFn:    func(ctx context.Context, input usecase.DebitInput) error { return nil },
		transferFn: func(ctx context.Context, input usecase.TransferInput) error { return nil },
		depositFn:  func(ctx context.Context, userID, amount int64) error { return nil },
		withdrawFn: func(ctx context.Context, userID, amount int64) error { return nil },
		getFn: func(ctx context.Context, userID int64) (*domain.Account, error) {
			return &domain.Account{UserID: userID}, nil
		},
		listFn: func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error) {
			return nil, nil
		},
		verifyFn: func(ctx context.Context, userID int64) (bool, int64, int64, error) {
			return true, 0, 0, nil
		},
		topFn: func(ctx context.Context, limit int) ([]*domain.Account, error) { return nil, nil },
	}
}

func TestBalanceHandler_Get(t *testing.T) {
	stub := newBalanceStub()
	stub.getFn = func(ctx context.Context, userID int64) (*domain.Account, error) {
		if userID != 42 {
			t.Fatalf("expected user 42, got %d", userID)
		}

		return &domain.Account{UserID: 42, Wallet: 700, Bank: 300}, nil
	}

	handler := NewBalanceHandler(stub)

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/42/balance", nil), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Wallet != 700 || resp.Bank != 300 || resp.Total != 1000 {
		t.Fatalf("unexpected balance: %+v", resp)
	}
}

func TestBalanceHandler_Get_InvalidUserID(t *testing.T) {
	handler := NewBalanceHandler(newBalanceStub())

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/abc/balance", nil), "userID", "abc")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBalanceHandler_Get_NotFound(t *testing.T) {
	stub := newBalanceStub()
	stub.getFn = func(ctx context.Context, userID int64) (*domain.Account, error) {
		return nil, domain.ErrAccountNotFound
	}

	handler := NewBalanceHandler(stub)

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/42/balance", nil), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBalanceHandler_Credit(t *testing.T) {
	var captured usecase.CreditInput

	stub := newBalanceStub()
	stub.creditFn = func(ctx context.Context, input usecase.CreditInput) error {
		captured = input
		return nil
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.CreditRequest{Amount: 500, Reason: "quest reward"})
	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/42/credit", bytes.NewReader(body)), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Credit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.UserID != 42 || captured.Amount != 500 || captured.Reason != "quest reward" {
		t.Fatalf("expected input to match request, got %+v", captured)
	}
}

func TestBalanceHandler_Credit_InvalidJSON(t *testing.T) {
	stub := newBalanceStub()
	stub.creditFn = func(ctx context.Context, input usecase.CreditInput) error {
		t.Fatal("Credit should not be called for invalid payload")
		return nil
	}

	handler := NewBalanceHandler(stub)

	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/42/credit", bytes.NewBufferString("{invalid json")), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Credit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBalanceHandler_Debit_InsufficientFunds(t *testing.T) {
	stub := newBalanceStub()
	stub.debitFn = func(ctx context.Context, input usecase.DebitInput) error {
		return domain.ErrInsufficientFunds
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.DebitRequest{Amount: 500})
	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/42/debit", bytes.NewReader(body)), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Debit(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestBalanceHandler_Transfer(t *testing.T) {
	var captured usecase.TransferInput

	stub := newBalanceStub()
	stub.transferFn = func(ctx context.Context, input usecase.TransferInput) error {
		captured = input
		return nil
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.TransferRequest{FromUserID: 1, ToUserID: 2, Amount: 250})
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Transfer(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.FromUserID != 1 || captured.ToUserID != 2 || captured.Amount != 250 {
		t.Fatalf("expected input to match request, got %+v", captured)
	}
}

func TestBalanceHandler_Transfer_SameAccount(t *testing.T) {
	stub := newBalanceStub()
	stub.transferFn = func(ctx context.Context, input usecase.TransferInput) error {
		return domain.ErrSameAccount
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.TransferRequest{FromUserID: 1, ToUserID: 1, Amount: 250})
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Transfer(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBalanceHandler_Deposit(t *testing.T) {
	var gotUser, gotAmount int64

	stub := newBalanceStub()
	stub.depositFn = func(ctx context.Context, userID, amount int64) error {
		gotUser, gotAmount = userID, amount
		return nil
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.BankRequest{Amount: 100})
	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/42/deposit", bytes.NewReader(body)), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Deposit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if gotUser != 42 || gotAmount != 100 {
		t.Fatalf("expected deposit of 100 for user 42, got user=%d amount=%d", gotUser, gotAmount)
	}
}

func TestBalanceHandler_Withdraw_ServiceError(t *testing.T) {
	stub := newBalanceStub()
	stub.withdrawFn = func(ctx context.Context, userID, amount int64) error {
		return errors.New("db error")
	}

	handler := NewBalanceHandler(stub)

	body, _ := json.Marshal(dto.BankRequest{Amount: 100})
	req := setChiURLParam(httptest.NewRequest(http.MethodPost, "/accounts/42/withdraw", bytes.NewReader(body)), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Withdraw(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestBalanceHandler_ListEntries(t *testing.T) {
	stub := newBalanceStub()
	stub.listFn = func(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error) {
		if input.UserID != 42 || input.Limit != 5 || input.Offset != 2 {
			t.Fatalf("expected user=42 limit=5 offset=2, got %+v", input)
		}

		return []*domain.LedgerEntry{
			{ID: "e1", UserID: 42, Amount: 100, Category: domain.CategoryAward},
			{ID: "e2", UserID: 42, Amount: -40, Category: domain.CategoryStockBuy},
		}, nil
	}

	handler := NewBalanceHandler(stub)

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/42/entries?limit=5&offset=2", nil), "userID", "42")
	rec := httptest.NewRecorder()

	handler.ListEntries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []*dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp) != 2 || resp[0].ID != "e1" {
		t.Fatalf("unexpected entries: %+v", resp)
	}
}

func TestBalanceHandler_Verify(t *testing.T) {
	stub := newBalanceStub()
	stub.verifyFn = func(ctx context.Context, userID int64) (bool, int64, int64, error) {
		return false, 900, 1000, nil
	}

	handler := NewBalanceHandler(stub)

	req := setChiURLParam(httptest.NewRequest(http.MethodGet, "/accounts/42/verify", nil), "userID", "42")
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.VerifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Balanced || resp.Wallet != 900 || resp.Replayed != 1000 {
		t.Fatalf("unexpected verify response: %+v", resp)
	}
}

func TestBalanceHandler_Top(t *testing.T) {
	stub := newBalanceStub()
	stub.topFn = func(ctx context.Context, limit int) ([]*domain.Account, error) {
		if limit != 3 {
			t.Fatalf("expected limit 3, got %d", limit)
		}

		return []*domain.Account{
			{UserID: 1, Wallet: 5000},
			{UserID: 2, Wallet: 4000},
		}, nil
	}

	handler := NewBalanceHandler(stub)

	req := httptest.NewRequest(http.MethodGet, "/accounts/top?limit=3", nil)
	rec := httptest.NewRecorder()

	handler.Top(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []*dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp) != 2 || resp[0].UserID != 1 {
		t.Fatalf("unexpected leaderboard: %+v", resp)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lowkeylabs/guildbank/internal/adapter/http/dto"
	"github.com/lowkeylabs/guildbank/internal/domain"
	"github.com/lowkeylabs/guildbank/internal/usecase"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	Credit(ctx context.Context, input usecase.CreditInput) error
	Debit(ctx context.Context, input usecase.DebitInput) error
	Transfer(ctx context.Context, input usecase.TransferInput) error
	Deposit(ctx context.Context, userID, amount int64) error
	Withdraw(ctx context.Context, userID, amount int64) error
	GetBalance(ctx context.Context, userID int64) (*domain.Account, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
	VerifyLedger(ctx context.Context, userID int64) (bool, int64, int64, error)
	TopWallets(ctx context.Context, limit int) ([]*domain.Account, error)
}

// BalanceHandler handles wallet and bank HTTP requests.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Get returns a user's balances.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	account, err := h.balanceUC.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(account))
}

// Credit awards funds to a user's wallet.
func (h *BalanceHandler) Credit(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.balanceUC.Credit(r.Context(), req.ToUseCaseInput(userID)); err != nil {
		writeError(w, mapDomainError(err), "failed to credit", err.Error())
		return
	}

	h.writeBalance(w, r, userID)
}

// Debit removes funds from a user's wallet.
func (h *BalanceHandler) Debit(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.balanceUC.Debit(r.Context(), req.ToUseCaseInput(userID)); err != nil {
		writeError(w, mapDomainError(err), "failed to debit", err.Error())
		return
	}

	h.writeBalance(w, r, userID)
}

// Transfer moves funds between two users.
func (h *BalanceHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.balanceUC.Transfer(r.Context(), req.ToUseCaseInput()); err != nil {
		writeError(w, mapDomainError(err), "failed to transfer", err.Error())
		return
	}

	h.writeBalance(w, r, req.FromUserID)
}

// Deposit moves funds from wallet to bank.
func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.bankOp(w, r, h.balanceUC.Deposit)
}

// Withdraw moves funds from bank to wallet.
func (h *BalanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.bankOp(w, r, h.balanceUC.Withdraw)
}

func (h *BalanceHandler) bankOp(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64) error) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.BankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := op(r.Context(), userID, req.Amount); err != nil {
		writeError(w, mapDomainError(err), "bank operation failed", err.Error())
		return
	}

	h.writeBalance(w, r, userID)
}

// ListEntries lists a user's ledger entries.
func (h *BalanceHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	entries, err := h.balanceUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		UserID: userID,
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Verify replays the user's ledger against the stored wallet balance.
func (h *BalanceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	balanced, wallet, replayed, err := h.balanceUC.VerifyLedger(r.Context(), userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to verify ledger", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.VerifyResponse{
		UserID:   userID,
		Wallet:   wallet,
		Replayed: replayed,
		Balanced: balanced,
	})
}

// Top lists the richest wallets.
func (h *BalanceHandler) Top(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.balanceUC.TopWallets(r.Context(), parseIntQuery(r, "limit", 10))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list top wallets", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(accounts))
}

func (h *BalanceHandler) writeBalance(w http.ResponseWriter, r *http.Request, userID int64) {
	account, err := h.balanceUC.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(account))
}

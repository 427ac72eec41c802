package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"funds-ledger/internal/errors"
	"funds-ledger/internal/service"
)

type TransactionHandler struct {
	fundsService *service.FundsService
}

func NewTransactionHandler(fundsService *service.FundsService) *TransactionHandler {
	return &TransactionHandler{
		fundsService: fundsService,
	}
}

// TransactionRequest is the wire transaction shape. Amounts are integer
// minor units. HoldID is an extension: clients that remember the id from a
// withdraw_request response may pin their withdraw to that exact hold;
// clients that do not send it have the oldest matching hold committed.
type TransactionRequest struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	AccountID string `json:"accountId"`
	HoldID    string `json:"holdId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

type AuthorizationResponse struct {
	HoldID    string    `json:"holdId"`
	AccountID string    `json:"accountId"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UnknownTypeResponse struct {
	Message     string             `json:"message"`
	Transaction TransactionRequest `json:"transaction"`
}

// Create dispatches POST /transaction. Status codes follow the protocol:
// 200 for applied deposits and withdrawals, 201 for a granted authorization,
// 402 for a declined one, 400 for malformed bodies or unknown types.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error()))
		return
	}

	switch req.Type {
	case "deposit":
		balance, err := h.fundsService.Deposit(r.Context(), req.AccountID, req.Amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BalanceResponse{AccountID: req.AccountID, Balance: balance})

	case "withdraw_request":
		hold, err := h.fundsService.AuthorizeWithdrawal(r.Context(), req.AccountID, req.Amount)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, AuthorizationResponse{
			HoldID:    hold.ID,
			AccountID: hold.AccountID,
			Amount:    hold.Amount,
			ExpiresAt: hold.ExpiresAt,
		})

	case "withdraw":
		var balance int64
		var err error
		if req.HoldID != "" {
			balance, err = h.fundsService.CommitWithdrawal(r.Context(), req.AccountID, req.HoldID)
		} else {
			balance, err = h.fundsService.CommitWithdrawalByAmount(r.Context(), req.AccountID, req.Amount)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BalanceResponse{AccountID: req.AccountID, Balance: balance})

	default:
		writeJSON(w, http.StatusBadRequest, UnknownTypeResponse{
			Message:     "Invalid transaction type",
			Transaction: req,
		})
	}
}

package handler

import (
	"net/http"

	"funds-ledger/internal/errors"
	"funds-ledger/internal/service"

	"github.com/gorilla/mux"
)

type AccountHandler struct {
	fundsService *service.FundsService
}

func NewAccountHandler(fundsService *service.FundsService) *AccountHandler {
	return &AccountHandler{
		fundsService: fundsService,
	}
}

// GetBalance serves GET /account/{account_id}. Unknown accounts respond with
// a zero balance rather than 404.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["account_id"]
	if accountID == "" {
		writeError(w, errors.NewAppError(errors.InvalidInput, "account id is required"))
		return
	}

	account := h.fundsService.GetBalance(accountID)
	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: account.AccountID,
		Balance:   account.Balance,
	})
}

package domain

// Account is the externally observable snapshot of an account. Balance is in
// integer minor units and reflects committed deposits and withdrawals only;
// active holds are an internal reservation and never show up here.
type Account struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

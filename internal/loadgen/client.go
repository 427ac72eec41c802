package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TxType mirrors the wire transaction types.
type TxType string

const (
	TxDeposit         TxType = "deposit"
	TxWithdrawRequest TxType = "withdraw_request"
	TxWithdraw        TxType = "withdraw"
)

// Transaction is the client-side wire transaction.
type Transaction struct {
	ID        string `json:"id"`
	Type      TxType `json:"type"`
	Amount    int64  `json:"amount"`
	AccountID string `json:"accountId"`
	HoldID    string `json:"holdId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewTransaction builds a transaction with a fresh id and timestamp.
func NewTransaction(txType TxType, amount int64, accountID string) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Type:      txType,
		Amount:    amount,
		AccountID: accountID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// requestTimeout is how long the harness waits before writing a request off
// as a timeout. A timeout is bookkeeping, not a ledger failure: the server
// may well still process the request.
const requestTimeout = 3 * time.Second

// Client issues harness traffic against a running server.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: requestTimeout,
	}
}

// SendResult is the outcome of one transaction request.
type SendResult struct {
	Status  int
	Latency time.Duration
}

// SendTransaction posts one transaction and reports its status and latency.
func (c *Client) SendTransaction(ctx context.Context, tx Transaction) (SendResult, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return SendResult{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/transaction", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()

	return SendResult{
		Status:  resp.StatusCode,
		Latency: time.Since(start),
	}, nil
}

// GetBalance fetches the committed balance of one account.
func (c *Client) GetBalance(ctx context.Context, accountID string) (int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/account/"+accountID, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("get balance for %s: unexpected status %d", accountID, resp.StatusCode)
	}

	var out struct {
		AccountID string `json:"accountId"`
		Balance   int64  `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

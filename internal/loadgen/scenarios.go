package loadgen

import "github.com/google/uuid"

// Scenario is an ordered list of traffic phases. Phases run sequentially;
// transactions within a phase are issued concurrently under the rate limit.
type Scenario struct {
	Name   string
	Phases [][]Transaction
}

// BasicScenario funds one account to 10,000.00 and then runs 100 small
// alternating withdrawal authorizations and deposits against it.
func BasicScenario() Scenario {
	accountID := uuid.NewString()

	var funding []Transaction
	for _, amount := range []int64{100000, 200000, 300000, 400000} {
		funding = append(funding, NewTransaction(TxDeposit, amount, accountID))
	}

	var traffic []Transaction
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			traffic = append(traffic, NewTransaction(TxWithdrawRequest, 1, accountID))
		} else {
			traffic = append(traffic, NewTransaction(TxDeposit, 1, accountID))
		}
	}

	return Scenario{
		Name:   "basic",
		Phases: [][]Transaction{append(funding, traffic...)},
	}
}

// AuthRaceScenario deposits 100 into a fresh account and then fires three
// concurrent authorizations for the full amount. A correct ledger grants
// exactly one of them; the final balance must never go negative.
func AuthRaceScenario() Scenario {
	accountID := uuid.NewString()

	return Scenario{
		Name: "authrace",
		Phases: [][]Transaction{
			{NewTransaction(TxDeposit, 100, accountID)},
			{
				NewTransaction(TxWithdrawRequest, 100, accountID),
				NewTransaction(TxWithdrawRequest, 100, accountID),
				NewTransaction(TxWithdrawRequest, 100, accountID),
			},
		},
	}
}

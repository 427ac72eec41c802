package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"funds-ledger/internal/loadgen"
)

// check reads an {accountId: expectedBalance} file produced by the load
// generator and compares it against the live service. A negative actual
// balance means the ledger allowed a double spend.
func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "server base URL")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: check [-base-url URL] <expected-balances.json>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read check file: %v\n", err)
		os.Exit(1)
	}

	var expected map[string]int64
	if err := json.Unmarshal(raw, &expected); err != nil {
		fmt.Fprintf(os.Stderr, "cannot parse check file: %v\n", err)
		os.Exit(1)
	}

	client := loadgen.NewClient(*baseURL)
	ctx := context.Background()
	failed := false

	for accountID, want := range expected {
		got, err := client.GetBalance(ctx, accountID)
		if err != nil {
			fmt.Printf("ERROR: Could not fetch balance for account %s: %v\n", accountID, err)
			failed = true
			continue
		}

		switch {
		case got < 0:
			fmt.Printf("ERROR: Balance is less than 0 for account %s. Received %d\n", accountID, got)
			failed = true
		case got != want:
			fmt.Printf("ERROR: Balances do not match. Expected %d but got %d for account %s\n", want, got, accountID)
			failed = true
		default:
			fmt.Printf("SUCCESS: Account %s correctly has a balance of %d\n", accountID, got)
		}
	}

	if failed {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"funds-ledger/internal/loadgen"

	"github.com/google/uuid"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "server base URL")
		scenario = flag.String("scenario", "basic", "traffic scenario: basic or authrace")
		maxRPS   = flag.Int("max-rps", 10, "maximum requests per second (sliding one-second window)")
		mode     = flag.String("mode", "instant", "withdrawal commit mode: instant, end or lazy")
		outDir   = flag.String("out", "tmp", "directory for the expected-balances file")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var sc loadgen.Scenario
	switch *scenario {
	case "basic":
		sc = loadgen.BasicScenario()
	case "authrace":
		sc = loadgen.AuthRaceScenario()
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenario)
		os.Exit(1)
	}

	commitMode := loadgen.CommitMode(*mode)
	switch commitMode {
	case loadgen.ModeInstant, loadgen.ModeEnd, loadgen.ModeLazy:
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(1)
	}

	client := loadgen.NewClient(*baseURL)
	runner := loadgen.NewRunner(client, *maxRPS, commitMode, logger)

	start := time.Now()
	result, err := runner.Run(context.Background(), sc.Phases...)
	if err != nil {
		logger.Error("run failed", "scenario", sc.Name, "error", err)
		os.Exit(1)
	}

	fmt.Print(result.Summary(time.Since(start)))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("cannot create output directory", "error", err)
		os.Exit(1)
	}

	outfile := filepath.Join(*outDir, uuid.NewString()+".json")
	payload, err := json.Marshal(result.ExpectedBalances)
	if err != nil {
		logger.Error("cannot marshal expected balances", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outfile, payload, 0o644); err != nil {
		logger.Error("cannot write expected balances", "error", err)
		os.Exit(1)
	}

	fmt.Printf("When the server has finished processing, check the state of your application by running the check command against %s\n", outfile)
}

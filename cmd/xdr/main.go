// Command xdr is the collaborator entrypoint: argument parsing, process
// supervision wiring, and the thin convenience wrappers over the
// control-plane HTTP API (`chaos enable|disable`, `logs`). None of this is
// part of the core request-handling contract; it only assembles and drives
// it. CLI parsing deliberately uses the standard library's flag package —
// pulling in a framework like cobra here would add a dependency for a
// surface explicitly out of scope for the core.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cronos-labs/xdr/internal/bootstrap"
	"github.com/cronos-labs/xdr/pkg/launcher"
	"github.com/cronos-labs/xdr/pkg/mosenv"
	"github.com/cronos-labs/xdr/pkg/mzap"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: xdr <run|chaos|logs> [flags]")
		return 1
	}

	switch args[0] {
	case "run":
		return runServe(args[1:])
	case "chaos":
		return runChaos(args[1:])
	case "logs":
		return runLogs(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "xdr: unknown subcommand %q\n", args[0])
		return 1
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)

	network := fs.String("network", "cronos-testnet", "cronos-testnet or cronos-mainnet")
	port := fs.Int("port", 8080, "port to listen on")
	bind := fs.String("bind", "0.0.0.0", "address to bind")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	mosenv.InitLocalEnvConfig()

	cfg, err := bootstrap.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xdr: configuration error: %s\n", err)
		return 1
	}

	switch *network {
	case "cronos-mainnet":
		cfg.ChainID = 25
	case "cronos-testnet":
		cfg.ChainID = 338
	default:
		fmt.Fprintf(os.Stderr, "xdr: unknown network %q\n", *network)
		return 1
	}

	cfg.ServerAddress = fmt.Sprintf("%s:%d", *bind, *port)

	logger := mzap.InitializeLogger()
	defer logger.Sync() //nolint:errcheck

	service := bootstrap.NewService(cfg, logger)

	l := launcher.New(
		launcher.WithLogger(logger),
		launcher.WithApp("server", &bootstrap.Server{
			Address: cfg.ServerAddress,
			Service: service,
			Logger:  logger,
		}),
	)

	l.Run()

	return 0
}

func runChaos(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: xdr chaos <enable|disable> [--server addr]")
		return 1
	}

	fs := flag.NewFlagSet("chaos", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "XDR control-plane base URL")
	seed := fs.Uint64("seed", 0, "chaos seed")
	failureRate := fs.Float64("failure-rate", 0, "pre-payment failure rate")
	rugRate := fs.Float64("rug-rate", 0, "post-payment (rug) rate")

	var sub string

	switch args[0] {
	case "enable", "disable":
		sub = args[0]
	default:
		fmt.Fprintf(os.Stderr, "xdr: unknown chaos subcommand %q\n", args[0])
		return 1
	}

	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	body, _ := json.Marshal(map[string]any{
		"enabled":      sub == "enable",
		"seed":         *seed,
		"failure_rate": *failureRate,
		"rug_rate":     *rugRate,
	})

	resp, err := http.Post(*server+"/_xdr/chaos", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "xdr: chaos request failed: %s\n", err)
		return 2
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "xdr: chaos request returned %d\n", resp.StatusCode)
		return 2
	}

	fmt.Printf("chaos %sd\n", sub)

	return 0
}

func runLogs(args []string) int {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	server := fs.String("server", "http://localhost:8080", "XDR control-plane base URL")
	agent := fs.String("agent", "", "filter by agent id")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	url := *server + "/_xdr/logs"
	if *agent != "" {
		url += "?agent=" + *agent
	}

	resp, err := http.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xdr: logs request failed: %s\n", err)
		return 2
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xdr: reading logs response failed: %s\n", err)
		return 2
	}

	fmt.Println(string(body))

	return 0
}

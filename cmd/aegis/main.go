// Command aegis is the operator CLI: canonical hashing of JSON documents,
// policy bundle inspection, and audit chain verification.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aegis-labs/aegis-core/pkg/auditchain"
	"github.com/aegis-labs/aegis-core/pkg/canonical"
	"github.com/aegis-labs/aegis-core/pkg/policy"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches subcommands.
//
// Exit codes:
//
//	0 = success
//	1 = check failed (broken chain, invalid policy)
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	configureLogging(stderr)

	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "hash":
		return runHashCmd(args[2:], stdout, stderr)
	case "policy":
		return runPolicyCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `usage: aegis <command> [flags]

commands:
  hash <file>       print the canonical sha256 hash of a JSON document
  policy <bundle>   load a policy bundle (json/yaml) and print its summary
  verify <chain>    replay a JSONL audit chain from genesis`)
}

func configureLogging(stderr io.Writer) {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("AEGIS_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
}

// runHashCmd prints the canonical hash of a JSON document, so externally
// produced hashes can be checked byte-for-byte against this implementation.
func runHashCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("hash", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: aegis hash <file>")
		return 2
	}

	data, err := os.ReadFile(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: not valid JSON: %v\n", err)
		return 2
	}

	hash, err := canonical.Hash(doc)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(stdout, hash)
	return 0
}

// runPolicyCmd loads and summarizes a policy bundle.
func runPolicyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("policy", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	jsonOutput := cmd.Bool("json", false, "print the summary as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: aegis policy [--json] <bundle>")
		return 2
	}

	loader := policy.NewLoader(slog.Default())
	pol, err := loader.LoadFile(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if *jsonOutput {
		summary := map[string]any{
			"name":          pol.Name(),
			"version":       pol.Version(),
			"hash":          pol.Hash(),
			"field_rules":   len(pol.FieldRules()),
			"portion_rules": len(pol.PortionRules()),
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
		return 0
	}

	_, _ = fmt.Fprintf(stdout, "policy:        %s\n", pol.Name())
	_, _ = fmt.Fprintf(stdout, "version:       %s\n", pol.Version())
	_, _ = fmt.Fprintf(stdout, "hash:          %s\n", pol.Hash())
	_, _ = fmt.Fprintf(stdout, "field rules:   %d\n", len(pol.FieldRules()))
	_, _ = fmt.Fprintf(stdout, "portion rules: %d\n", len(pol.PortionRules()))
	return 0
}

// runVerifyCmd replays a JSONL audit chain from genesis.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "usage: aegis verify <chain.jsonl>")
		return 2
	}

	store, err := auditchain.NewFileStore(cmd.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	envelopes, err := store.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	ok, detail := auditchain.VerifyEnvelopes(envelopes)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "FAIL: %s\n", detail)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "OK: %d envelopes, chain intact\n", len(envelopes))
	return 0
}

// SPDX-License-Identifier: Apache-2.0

// Command telos runs a single reasoning task against a configured oracle
// and a small set of built-in demo tools.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jllopis/telos/pkg/agent"
	"github.com/jllopis/telos/pkg/config"
	"github.com/jllopis/telos/pkg/history"
	"github.com/jllopis/telos/pkg/llm"
	"github.com/jllopis/telos/pkg/stagnation"
	"github.com/jllopis/telos/pkg/telemetry"
	"github.com/jllopis/telos/pkg/tool"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		input      = flag.String("input", "", "the task to run (required)")
		provider   = flag.String("provider", "", "override the oracle provider (ollama, mock)")
		toolset    = flag.String("toolset", "", "path to a YAML toolset manifest with dependency/timeout overrides")
		jsonOut    = flag.Bool("json", false, "print the full run output as JSON")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("telos", version)
		return
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: telos -input \"task text\" [-config file.yaml] [-json]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *provider != "" {
		cfg.Oracle.Provider = *provider
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitWithConfig("telos", version, telemetry.Config{
			Exporter: cfg.Telemetry.Exporter,
			Endpoint: cfg.Telemetry.Endpoint,
			Insecure: true,
		})
		if err != nil {
			fatal(err)
		}
		defer shutdown(context.Background())
	}

	oracle, err := buildProvider(cfg)
	if err != nil {
		fatal(err)
	}

	opts := []agent.Option{
		agent.WithProvider(oracle),
		agent.WithTools(demoTools()...),
		agent.WithLogger(logger),
		agent.WithConfig(agent.Config{
			MaxIterations:  cfg.Loop.MaxIterations,
			RetryAttempts:  cfg.Loop.RetryAttempts,
			IterationDelay: cfg.Loop.IterationDelay,
			Sequential:     cfg.Loop.Sequential,
			SystemPrompt:   cfg.Loop.SystemPrompt,
			StagnationWarn: cfg.Stagnation.WarnThreshold,
			StagnationStop: cfg.Stagnation.StopThreshold,
			OracleOptions: llm.Options{
				Model:       cfg.Oracle.Model,
				Temperature: cfg.Oracle.Temperature,
				MaxTokens:   cfg.Oracle.MaxTokens,
			},
		}),
		agent.WithDetector(stagnation.New(stagnation.Config{
			RepeatWindow:      cfg.Stagnation.RepeatWindow,
			RepeatThreshold:   cfg.Stagnation.RepeatLimit,
			DisableBurstCheck: cfg.Stagnation.DisableBurst,
		})),
	}

	if cfg.Audit.Enabled {
		store, err := history.OpenSQLite(cfg.Audit.Path)
		if err != nil {
			fatal(err)
		}
		defer store.Close()
		opts = append(opts, agent.WithAudit(store))
	}

	a, err := agent.New("telos-cli", opts...)
	if err != nil {
		fatal(err)
	}

	if *toolset != "" {
		manifest, err := tool.LoadManifestFile(*toolset)
		if err != nil {
			fatal(err)
		}
		if err := manifest.Apply(a.Registry()); err != nil {
			fatal(err)
		}
	}

	out := a.Run(ctx, *input)

	if *jsonOut {
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Println(string(encoded))
		return
	}

	if out.FinalAnswer.Success {
		fmt.Printf("answer (%d iterations): %v\n", out.Iterations, out.FinalAnswer.Output)
	} else {
		fmt.Printf("run failed after %d iterations: %s\n", out.Iterations, out.FinalAnswer.Error)
		os.Exit(1)
	}
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Oracle.Provider {
	case "ollama":
		return llm.NewOllama(cfg.Oracle.BaseURL), nil
	case "mock":
		return llm.NewScriptedMockProvider(
			`[{"name": "final", "arguments": {"answer": "mock answer"}}]`,
		), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider: %s", cfg.Oracle.Provider)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "telos:", err)
	os.Exit(1)
}

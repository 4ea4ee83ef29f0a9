// SPDX-License-Identifier: Apache-2.0

// Package agent implements the bounded reasoning loop: prompt the oracle,
// parse proposed tool calls, screen them for stagnation, execute them
// through the dependency scheduler, and repeat until a terminal answer or
// an exhausted budget.
package agent

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/history"
	"github.com/jllopis/telos/pkg/llm"
	"github.com/jllopis/telos/pkg/parser"
	"github.com/jllopis/telos/pkg/prompt"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/scheduler"
	"github.com/jllopis/telos/pkg/stagnation"
	"github.com/jllopis/telos/pkg/tool"
)

// ParseFunc turns oracle completion text into proposed calls.
type ParseFunc func(text string) ([]core.ProposedCall, error)

// Config tunes the iteration loop.
type Config struct {
	// MaxIterations bounds the number of loop iterations per run.
	MaxIterations int

	// RetryAttempts is the budget for consecutive parse failures and for
	// repeated identical tool errors across iterations. Oracle transport
	// retries are governed separately by the retry policy.
	RetryAttempts int

	// IterationDelay is slept between iterations, skipped after the last.
	IterationDelay time.Duration

	// Sequential switches the scheduler to one-call-at-a-time execution
	// that halts at the first failure.
	Sequential bool

	// SystemPrompt is prepended to every rendered prompt.
	SystemPrompt string

	// Context is caller-supplied data exposed to the oracle in the prompt.
	Context map[string]any

	// OracleOptions are passed through to every completion request.
	OracleOptions llm.Options

	// StagnationWarn is the confidence above which a warning is recorded
	// and automatic retry is disabled for the rest of the run.
	StagnationWarn float64

	// StagnationStop is the confidence at which the run is force-terminated.
	StagnationStop float64
}

// DefaultConfig returns the default loop tuning.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  10,
		RetryAttempts:  3,
		StagnationWarn: 0.7,
		StagnationStop: 0.9,
	}
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.StagnationWarn <= 0 {
		cfg.StagnationWarn = def.StagnationWarn
	}
	if cfg.StagnationStop <= 0 {
		cfg.StagnationStop = def.StagnationStop
	}
	return cfg
}

// Agent drives bounded reasoning runs against a tool registry.
type Agent struct {
	id       string
	provider llm.Provider
	registry *tool.Registry
	renderer prompt.Renderer
	parse    ParseFunc
	hooks    *core.Hooks
	cfg      Config
	detector *stagnation.Detector
	retry    resilience.RetryConfig
	audit    history.Recorder
	prior    []core.ExecutionResult
	sched    *scheduler.Scheduler
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Agent instance.
type Option func(*Agent) error

// New creates an agent with a required id and options. A provider is
// required; everything else has a working default.
func New(id string, opts ...Option) (*Agent, error) {
	a := &Agent{
		id:       id,
		registry: tool.NewRegistry(),
		renderer: prompt.DefaultRenderer{},
		parse:    parser.ParseCalls,
		cfg:      DefaultConfig(),
		detector: stagnation.New(stagnation.DefaultConfig()),
		retry:    resilience.DefaultRetryConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.id == "" {
		return nil, errors.New(errors.KindConfiguration, "agent id is required", nil)
	}
	if a.provider == nil {
		return nil, errors.New(errors.KindConfiguration, "oracle provider is required", nil)
	}
	a.cfg = normalizeConfig(a.cfg)
	a.sched = scheduler.New(a.registry, a.logger)
	a.tracer = otel.Tracer("telos/agent")
	return a, nil
}

// WithProvider sets the reasoning oracle.
func WithProvider(p llm.Provider) Option {
	return func(a *Agent) error {
		a.provider = p
		return nil
	}
}

// WithRegistry replaces the tool registry.
func WithRegistry(r *tool.Registry) Option {
	return func(a *Agent) error {
		if r == nil {
			return errors.New(errors.KindConfiguration, "registry is nil", nil)
		}
		a.registry = r
		return nil
	}
}

// WithTools registers tools into the agent's registry. Registration
// failures surface from New.
func WithTools(tools ...core.Tool) Option {
	return func(a *Agent) error {
		for _, t := range tools {
			if err := a.registry.Register(t); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithRenderer replaces the prompt renderer.
func WithRenderer(r prompt.Renderer) Option {
	return func(a *Agent) error {
		a.renderer = r
		return nil
	}
}

// WithParser replaces the oracle-response parser.
func WithParser(p ParseFunc) Option {
	return func(a *Agent) error {
		a.parse = p
		return nil
	}
}

// WithHooks attaches lifecycle hooks.
func WithHooks(h *core.Hooks) Option {
	return func(a *Agent) error {
		a.hooks = h
		return nil
	}
}

// WithConfig sets the loop tuning. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(a *Agent) error {
		a.cfg = cfg
		return nil
	}
}

// WithDetector replaces the stagnation detector.
func WithDetector(d *stagnation.Detector) Option {
	return func(a *Agent) error {
		a.detector = d
		return nil
	}
}

// WithRetry sets the oracle retry policy.
func WithRetry(rc resilience.RetryConfig) Option {
	return func(a *Agent) error {
		a.retry = rc
		return nil
	}
}

// WithAudit attaches an audit recorder for executed calls.
func WithAudit(rec history.Recorder) Option {
	return func(a *Agent) error {
		a.audit = rec
		return nil
	}
}

// WithPriorHistory seeds the run's call history.
func WithPriorHistory(results ...core.ExecutionResult) Option {
	return func(a *Agent) error {
		a.prior = append(a.prior, results...)
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) error {
		if logger != nil {
			a.logger = logger
		}
		return nil
	}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry { return a.registry }

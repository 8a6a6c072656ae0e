package parley

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/parleyhq/parley/internal/compiler"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/runtime"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/understand"
)

// TurnResult is what one processed turn produced; see the runtime package for
// field semantics.
type TurnResult = runtime.TurnResult

// Handler processes one instruction kind; hosts can register their own with
// RegisterInstruction.
type Handler = runtime.Handler

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc = runtime.HandlerFunc

// Env is the dependency bundle instruction handlers run against.
type Env = runtime.Env

// Engine is the public entry point: a stateless turn processor over a
// compiled flow catalog. Conversation state lives entirely in snapshots the
// host stores between turns.
type Engine struct {
	catalog *runtime.Catalog
	engine  *runtime.Engine
}

type config struct {
	understander ports.Understander
	executor     ports.ActionExecutor
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	maxDepth     int
	maxRetries   int
	maxSteps     int
}

// Option customizes engine construction.
type Option func(*config)

// WithUnderstander sets the understanding provider. Without one the engine
// falls back to the deterministic keyword matcher.
func WithUnderstander(u ports.Understander) Option {
	return func(c *config) { c.understander = u }
}

// WithActionExecutor sets the executor behind Action steps.
func WithActionExecutor(ex ports.ActionExecutor) Option {
	return func(c *config) { c.executor = ex }
}

// WithLogger sets the structured logger; the default writes to stderr at
// info level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHooks installs lifecycle callbacks, typically for metrics.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(c *config) { c.hooks = h }
}

// WithMaxStackDepth bounds how deep digressions can nest.
func WithMaxStackDepth(depth int) Option {
	return func(c *config) { c.maxDepth = depth }
}

// WithMaxConfirmRetries bounds unrecognized confirmation answers before a
// flow is abandoned.
func WithMaxConfirmRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithMaxStepsPerTurn bounds graph execution per turn, guarding against
// runaway loops.
func WithMaxStepsPerTurn(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// New compiles every flow definition and assembles an engine. Compilation is
// eager: any structural problem in any flow fails construction.
func New(flows []domain.FlowDefinition, opts ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.New(os.Stderr, "info")
	}
	if cfg.understander == nil {
		cfg.understander = understand.NewKeyword(flows)
	}

	catalog, err := runtime.NewCatalog(flows)
	if err != nil {
		return nil, fmt.Errorf("compiling flows: %w", err)
	}

	var managerOpts []runtime.ManagerOption
	if cfg.maxDepth > 0 {
		managerOpts = append(managerOpts, runtime.WithMaxStackDepth(cfg.maxDepth))
	}

	eng := runtime.NewEngine(runtime.EngineConfig{
		Catalog:           catalog,
		Manager:           runtime.NewManager(managerOpts...),
		Understander:      cfg.understander,
		Executor:          cfg.executor,
		Hooks:             cfg.hooks,
		Logger:            cfg.logger,
		MaxConfirmRetries: cfg.maxRetries,
		MaxStepsPerTurn:   cfg.maxSteps,
	})
	return &Engine{catalog: catalog, engine: eng}, nil
}

// ProcessTurn runs one turn of a conversation. The input snapshot is never
// mutated; the updated one is in the result.
func (e *Engine) ProcessTurn(ctx context.Context, snap *domain.Snapshot, text string) (*TurnResult, error) {
	return e.engine.ProcessTurn(ctx, snap, text)
}

// NewConversation creates an empty snapshot for a conversation ID.
func (e *Engine) NewConversation(id string) *domain.Snapshot {
	return domain.NewSnapshot(id)
}

// Flows lists the compiled flow definitions, sorted by name.
func (e *Engine) Flows() []domain.FlowDefinition {
	return e.catalog.Definitions()
}

// GraphInfo summarizes a flow's compiled graph.
func (e *Engine) GraphInfo(flow string) (*domain.GraphInfo, error) {
	cf, ok := e.catalog.Get(flow)
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", flow)
	}
	return cf.Graph.Info(), nil
}

// RegisterInstruction installs a handler for a custom instruction kind.
func (e *Engine) RegisterInstruction(kind domain.InstructionKind, h Handler) {
	e.engine.Dispatcher().Register(kind, h)
}

// CompileFlow validates a single definition without building an engine, for
// lint-style tooling. It returns the graph summary on success.
func CompileFlow(def domain.FlowDefinition) (*domain.GraphInfo, error) {
	g, err := compiler.Compile(def.Name, def.Steps)
	if err != nil {
		return nil, err
	}
	return g.Info(), nil
}

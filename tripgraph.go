// Package tripgraph provides the runtime for dependency-graph fact gathering
// over trip data: a planner turns a traveler's question into a DAG of fetch
// slots, a scheduler walks the DAG one worker dispatch at a time, and a
// synthesizer composes the answer from whatever facts were gathered.
package tripgraph

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/fairwaylabs/tripgraph/internal/eventbus"
)

// Engine is the main entry point into the tripgraph runtime. It encapsulates
// all components required for answering trip questions.
type Engine struct {
	// Core components
	planner     Planner
	gatherer    Gatherer
	synthesizer Synthesizer
	cache       Cache
	eventBus    eventbus.EventBus

	// Available fetch workers
	workers map[string]Worker

	// Configuration
	config Config

	// Async processing
	asyncTurns      map[string]*TurnContext
	asyncTurnsMutex sync.RWMutex
}

// Components holds references to the core components needed for state
// transitions.
type Components struct {
	Planner     Planner
	Gatherer    Gatherer
	Synthesizer Synthesizer
	Workers     map[string]Worker
	Config      Config

	// Function to retrieve worker schemas
	GetSchemas func() map[string]map[string]interface{}
}

// Gatherer runs the fact-gathering loop over a fetch plan until a terminal
// reason is reached.
type Gatherer interface {
	ExecuteGathering(ctx context.Context, plan *FetchPlan, facts *FactStore, workers map[string]Worker) (*GatherReport, error)
}

// GatherOutcome records what happened to one dispatched slot.
type GatherOutcome struct {
	SlotID      string        `json:"slot_id"`
	Worker      string        `json:"worker"`
	TargetField string        `json:"target_field"`
	Status      WorkerStatus  `json:"status"`
	Diagnostic  string        `json:"diagnostic,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// GatherReport is the gatherer's terminal summary for one turn.
type GatherReport struct {
	Reason     TerminalReason  `json:"reason"`
	Detail     string          `json:"detail,omitempty"`
	Iterations int             `json:"iterations"`
	Outcomes   []GatherOutcome `json:"outcomes,omitempty"`
}

// Config holds the configuration options for the tripgraph runtime.
type Config struct {
	// Per-turn dispatch budget for the gathering loop
	MaxIterations int

	// Per-worker fetch timeout
	WorkerTimeout time.Duration

	// Event bus configuration
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       10,
		WorkerTimeout:       time.Second * 30,
		EnableEventBus:      true,
		EventBusBufferSize:  100,
		EventBusWorkerCount: 5,
	}
}

// Option is a function that configures an Engine instance.
type Option func(*Engine)

// WithConfig sets the configuration for the engine.
func WithConfig(config Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithPlanner sets the planner component.
func WithPlanner(planner Planner) Option {
	return func(e *Engine) {
		e.planner = planner
	}
}

// WithGatherer sets the gatherer component.
func WithGatherer(gatherer Gatherer) Option {
	return func(e *Engine) {
		e.gatherer = gatherer
	}
}

// WithSynthesizer sets the synthesizer component.
func WithSynthesizer(synthesizer Synthesizer) Option {
	return func(e *Engine) {
		e.synthesizer = synthesizer
	}
}

// WithCache sets the cache component.
func WithCache(cache Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithWorkers adds fetch workers to the runtime.
func WithWorkers(workers map[string]Worker) Option {
	return func(e *Engine) {
		if e.workers == nil {
			e.workers = make(map[string]Worker)
		}
		for name, worker := range workers {
			e.workers[name] = worker
		}
	}
}

// New creates a new Engine instance with the provided options.
func New(ctx context.Context, g *genkit.Genkit, options ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}

	e := &Engine{
		config:     DefaultConfig(),
		workers:    make(map[string]Worker),
		asyncTurns: make(map[string]*TurnContext),
	}

	for _, option := range options {
		option(e)
	}

	// Validate required components
	if e.planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if e.gatherer == nil {
		return nil, fmt.Errorf("gatherer is required")
	}
	if e.synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if e.cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if len(e.workers) == 0 {
		return nil, fmt.Errorf("at least one worker is required")
	}

	// Initialize event bus if enabled but not provided
	if e.config.EnableEventBus && e.eventBus == nil {
		e.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(e.config.EventBusBufferSize),
			eventbus.WithWorkerCount(e.config.EventBusWorkerCount),
		)
		log.Printf("Initialized default channel-based event bus")
	}

	return e, nil
}

// RegisterWorker adds a new fetch worker to the runtime.
func (e *Engine) RegisterWorker(name string, worker Worker) error {
	if _, exists := e.workers[name]; exists {
		return fmt.Errorf("worker with name '%s' already exists", name)
	}
	e.workers[name] = worker
	return nil
}

// GetWorkerSchemas returns a map of worker names to their full schemas,
// suitable for use in planner prompts.
func (e *Engine) GetWorkerSchemas() map[string]map[string]interface{} {
	schemas := make(map[string]map[string]interface{})
	for name, worker := range e.workers {
		schemas[name] = worker.Schema()
	}
	return schemas
}

// Ask handles an end-to-end turn through the tripgraph runtime using a
// pushdown automaton state machine. A nil session gets an ephemeral one, so
// single-shot questions work without session management.
func (e *Engine) Ask(ctx context.Context, session *Session, question string) (string, error) {
	if session == nil {
		session = NewSession("", "")
	}
	session.BeginTurn()
	defer session.EndTurn()

	stateMachine := e.createStateMachine()
	turnContext := NewTurnContext(session, question)

	return stateMachine.Execute(ctx, turnContext)
}

// createStateMachine builds a state machine with all necessary transitions
// for the turn workflow.
func (e *Engine) createStateMachine() *StateMachine {
	var eventBus eventbus.EventBus
	if e.config.EnableEventBus {
		eventBus = e.eventBus
	}

	components := Components{
		Planner:     e.planner,
		Gatherer:    e.gatherer,
		Synthesizer: e.synthesizer,
		Workers:     make(map[string]Worker),
		Config:      e.config,
		GetSchemas: func() map[string]map[string]interface{} {
			return e.GetWorkerSchemas()
		},
	}

	for name, worker := range e.workers {
		components.Workers[name] = worker
	}

	return CreateTurnStateMachine(components, eventBus)
}

// GetWorkerByName returns a worker by its name, or an error if not found.
func (e *Engine) GetWorkerByName(name string) (Worker, error) {
	if worker, exists := e.workers[name]; exists {
		return worker, nil
	}
	return nil, fmt.Errorf("worker with name '%s' not found", name)
}

// ListWorkers returns a list of all registered worker names.
func (e *Engine) ListWorkers() []string {
	names := make([]string, 0, len(e.workers))
	for name := range e.workers {
		names = append(names, name)
	}
	return names
}

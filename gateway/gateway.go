// Package gateway is the Model Gateway (spec §4.3): a single abstraction over
// multiple language-model providers that scores and selects a provider per
// call instead of hard-wiring callers to one vendor. Grounded on
// semantic/actionregistry.go's Register/MustRegister/Unregister registry
// pattern, generalized from echo action handlers to model providers and
// stripped of its package-level default instance — the registry is built and
// owned by the composition root, per the Design Note against module-level
// mutable state.
package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docpipe/docpipe/logging"
)

// Capability is a feature a Provider may or may not support.
type Capability string

const (
	CapabilityTextGeneration Capability = "text_generation"
	CapabilityStreaming      Capability = "streaming"
	CapabilityEmbeddings     Capability = "embeddings"
	CapabilityVision         Capability = "vision"
	CapabilityJSONMode       Capability = "json_mode"
	CapabilityLongContext    Capability = "long_context"
)

// CostProfile carries the data the selection strategies score against.
type CostProfile struct {
	CostPerKInputTokens  float64
	CostPerKOutputTokens float64
	AvgLatencyMS         int
	QualityScore         float64 // 0..1, higher is better
	MaxContextTokens     int
}

// Metadata describes a registered Provider for selection purposes.
type Metadata struct {
	ID           string
	ModelID      string
	Capabilities []Capability
	Cost         CostProfile
	Enabled      bool
	// PreferredFor lists task types (spec §6.5's per-provider "preferred_for")
	// this provider should be nudged toward under the balanced strategy.
	PreferredFor []string
}

func (m Metadata) preferredForTask(taskType string) bool {
	if taskType == "" {
		return false
	}
	for _, t := range m.PreferredFor {
		if t == taskType {
			return true
		}
	}
	return false
}

func (m Metadata) hasCapability(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// GenerateOptions carries per-call tuning knobs common across providers.
type GenerateOptions struct {
	MaxOutputTokens int
	Temperature     float64
	JSONMode        bool
}

// Provider is one pluggable model backend.
type Provider interface {
	Metadata() Metadata
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	GenerateStreaming(ctx context.Context, prompt string, opts GenerateOptions, chunks chan<- string) error
	Embed(ctx context.Context, text string) ([]float32, error)
	Health(ctx context.Context) error
}

// TaskRequirements describes what a caller needs from a provider for one
// task, used to filter and rank the registry (spec §4.3's selection
// strategies).
type TaskRequirements struct {
	RequiredCapabilities []Capability
	MinQualityScore      float64
	MaxLatencyMS         int
	MinContextTokens     int
	PreferredProviderID  string
	// TaskType names the calling tool (e.g. "summarization"), matched
	// against a provider's PreferredFor for the balanced strategy's
	// task_preference_bonus term (spec §4.3).
	TaskType string
}

func (r TaskRequirements) satisfiedBy(m Metadata) bool {
	if !m.Enabled {
		return false
	}
	for _, c := range r.RequiredCapabilities {
		if !m.hasCapability(c) {
			return false
		}
	}
	if r.MinQualityScore > 0 && m.Cost.QualityScore < r.MinQualityScore {
		return false
	}
	if r.MaxLatencyMS > 0 && m.Cost.AvgLatencyMS > r.MaxLatencyMS {
		return false
	}
	if r.MinContextTokens > 0 && m.Cost.MaxContextTokens < r.MinContextTokens {
		return false
	}
	return true
}

// Strategy selects one candidate from a filtered, non-empty provider list.
type Strategy string

const (
	StrategyCost     Strategy = "cost"
	StrategyQuality  Strategy = "quality"
	StrategyLatency  Strategy = "latency"
	StrategyBalanced Strategy = "balanced"
	StrategyManual   Strategy = "manual"
)

// Registry holds the providers available for selection. Populated once at
// composition-root time; safe for concurrent reads thereafter, but Register
// still takes a lock since providers can be hot-swapped (e.g. disabling a
// provider that started failing health checks).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own Metadata().ID.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.Metadata().ID
	if id == "" {
		return fmt.Errorf("gateway: provider metadata missing id")
	}
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("gateway: provider %q already registered", id)
	}
	r.providers[id] = p
	return nil
}

// MustRegister registers a provider and panics on failure. Intended for
// composition-root initialization where a duplicate id is a programming
// error.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Unregister removes a provider by id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, id)
}

// Get returns a provider by id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// List returns all registered providers in no particular order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// ErrNoEligibleProvider is returned when no registered provider satisfies a
// task's requirements.
var ErrNoEligibleProvider = fmt.Errorf("gateway: no eligible provider for requirements")

// Gateway selects and calls a Provider per request, per spec §4.3.
type Gateway struct {
	registry        *Registry
	strategy        Strategy
	fallbackChain   []string
	defaultProvider string
	log             *logging.Logger
}

// New builds a Gateway over registry using strategy as its default selection
// strategy (StrategyBalanced if empty). fallbackChain and defaultProvider
// implement spec §4.3 step 4: when no registered provider satisfies a
// task's requirements, Select tries each id in fallbackChain in order, then
// falls back to defaultProvider, before finally reporting
// ErrNoEligibleProvider.
func New(registry *Registry, strategy Strategy, fallbackChain []string, defaultProvider string, log *logging.Logger) *Gateway {
	if strategy == "" {
		strategy = StrategyBalanced
	}
	if log == nil {
		log = logging.NewLogger(nil, map[string]interface{}{"component": "gateway"})
	}
	return &Gateway{registry: registry, strategy: strategy, fallbackChain: fallbackChain, defaultProvider: defaultProvider, log: log}
}

// Select filters the registry down to providers satisfying req, then ranks
// the survivors by g's strategy and returns the winner. If none satisfy
// req, it falls through g.fallbackChain and then g.defaultProvider (spec
// §4.3 step 4) before giving up.
func (g *Gateway) Select(req TaskRequirements) (Provider, error) {
	if req.PreferredProviderID != "" {
		if p, ok := g.registry.Get(req.PreferredProviderID); ok && req.satisfiedBy(p.Metadata()) {
			return p, nil
		}
		if g.strategy == StrategyManual {
			return nil, fmt.Errorf("%w: preferred provider %q unavailable", ErrNoEligibleProvider, req.PreferredProviderID)
		}
	}

	candidates := g.registry.List()
	eligible := make([]Provider, 0, len(candidates))
	for _, p := range candidates {
		if req.satisfiedBy(p.Metadata()) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) > 0 {
		sort.Slice(eligible, func(i, j int) bool {
			return rank(eligible[i].Metadata(), g.strategy, req) > rank(eligible[j].Metadata(), g.strategy, req)
		})
		return eligible[0], nil
	}

	for _, id := range g.fallbackChain {
		if p, ok := g.registry.Get(id); ok && p.Metadata().Enabled {
			g.log.WithField("provider_id", id).Warn("no eligible provider; using fallback chain entry")
			return p, nil
		}
	}
	if g.defaultProvider != "" {
		if p, ok := g.registry.Get(g.defaultProvider); ok && p.Metadata().Enabled {
			g.log.WithField("provider_id", g.defaultProvider).Warn("no eligible provider; using configured default")
			return p, nil
		}
	}
	return nil, ErrNoEligibleProvider
}

// rank scores a provider higher-is-better under strategy.
func rank(m Metadata, s Strategy, req TaskRequirements) float64 {
	switch s {
	case StrategyCost:
		cost := m.Cost.CostPerKInputTokens + m.Cost.CostPerKOutputTokens
		if cost <= 0 {
			return 1e9
		}
		return 1 / cost
	case StrategyQuality:
		return m.Cost.QualityScore
	case StrategyLatency:
		if m.Cost.AvgLatencyMS <= 0 {
			return 1e9
		}
		return 1 / float64(m.Cost.AvgLatencyMS)
	case StrategyBalanced, StrategyManual:
		fallthrough
	default:
		// spec §4.3: 0.4·quality + 0.3·cost_score + 0.2·latency_score +
		// 0.1·task_preference_bonus, each non-quality score normalized via
		// 1/(1+x) of its raw cost or latency.
		cost := m.Cost.CostPerKInputTokens + m.Cost.CostPerKOutputTokens
		costScore := normalizeCost(cost)
		latencyScore := normalizeCost(float64(m.Cost.AvgLatencyMS))
		bonus := 0.0
		if m.preferredForTask(req.TaskType) {
			bonus = 1.0
		}
		return 0.4*m.Cost.QualityScore + 0.3*costScore + 0.2*latencyScore + 0.1*bonus
	}
}

// normalizeCost maps a raw cost/latency value (lower is better, 0 is free)
// to a higher-is-better score in (0,1] via 1/(1+x) (spec §4.3).
func normalizeCost(x float64) float64 {
	if x <= 0 {
		return 1
	}
	return 1 / (1 + x)
}

// Generate selects a provider for req and invokes Generate on it.
func (g *Gateway) Generate(ctx context.Context, prompt string, req TaskRequirements, opts GenerateOptions) (string, string, error) {
	p, err := g.Select(req)
	if err != nil {
		return "", "", err
	}
	out, err := p.Generate(ctx, prompt, opts)
	if err != nil {
		return "", p.Metadata().ID, fmt.Errorf("gateway: generate via %s: %w", p.Metadata().ID, err)
	}
	return out, p.Metadata().ID, nil
}

// GenerateStreaming selects a provider for req and streams chunks into ch.
func (g *Gateway) GenerateStreaming(ctx context.Context, prompt string, req TaskRequirements, opts GenerateOptions, ch chan<- string) (string, error) {
	p, err := g.Select(req)
	if err != nil {
		return "", err
	}
	if err := p.GenerateStreaming(ctx, prompt, opts, ch); err != nil {
		return p.Metadata().ID, fmt.Errorf("gateway: stream via %s: %w", p.Metadata().ID, err)
	}
	return p.Metadata().ID, nil
}

// Embed selects an embeddings-capable provider and embeds text.
func (g *Gateway) Embed(ctx context.Context, text string, req TaskRequirements) ([]float32, string, error) {
	req.RequiredCapabilities = append(req.RequiredCapabilities, CapabilityEmbeddings)
	p, err := g.Select(req)
	if err != nil {
		return nil, "", err
	}
	vec, err := p.Embed(ctx, text)
	if err != nil {
		return nil, p.Metadata().ID, fmt.Errorf("gateway: embed via %s: %w", p.Metadata().ID, err)
	}
	return vec, p.Metadata().ID, nil
}

// Health runs Health against every registered provider and returns the ids
// that failed, alongside their errors.
func (g *Gateway) Health(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, p := range g.registry.List() {
		if err := p.Health(ctx); err != nil {
			failures[p.Metadata().ID] = err
		}
	}
	return failures
}

package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/gateway"
	"github.com/docpipe/docpipe/gateway/providers"
)

type fakeProvider struct {
	meta gateway.Metadata
}

func (f fakeProvider) Metadata() gateway.Metadata { return f.meta }
func (f fakeProvider) Generate(context.Context, string, gateway.GenerateOptions) (string, error) {
	return "from:" + f.meta.ID, nil
}
func (f fakeProvider) GenerateStreaming(context.Context, string, gateway.GenerateOptions, chan<- string) error {
	return nil
}
func (f fakeProvider) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }
func (f fakeProvider) Health(context.Context) error                    { return nil }

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := gateway.NewRegistry()
	p := fakeProvider{meta: gateway.Metadata{ID: "a", Enabled: true}}
	require.NoError(t, r.Register(p))
	assert.Error(t, r.Register(p))
}

func TestSelectFiltersByRequirements(t *testing.T) {
	r := gateway.NewRegistry()
	cheap := fakeProvider{meta: gateway.Metadata{
		ID: "cheap", Enabled: true,
		Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost:         gateway.CostProfile{CostPerKInputTokens: 0.1, CostPerKOutputTokens: 0.1, AvgLatencyMS: 200, QualityScore: 0.5},
	}}
	vision := fakeProvider{meta: gateway.Metadata{
		ID: "vision", Enabled: true,
		Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration, gateway.CapabilityVision},
		Cost:         gateway.CostProfile{CostPerKInputTokens: 1, CostPerKOutputTokens: 1, AvgLatencyMS: 500, QualityScore: 0.9},
	}}
	require.NoError(t, r.Register(cheap))
	require.NoError(t, r.Register(vision))

	g := gateway.New(r, gateway.StrategyCost, nil, "", nil)
	p, err := g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration}})
	require.NoError(t, err)
	assert.Equal(t, "cheap", p.Metadata().ID)

	_, err = g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityEmbeddings}})
	assert.ErrorIs(t, err, gateway.ErrNoEligibleProvider)
}

func TestSelectQualityStrategyPrefersHigherScore(t *testing.T) {
	r := gateway.NewRegistry()
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{
		ID: "low", Enabled: true, Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost: gateway.CostProfile{QualityScore: 0.2, AvgLatencyMS: 100},
	}}))
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{
		ID: "high", Enabled: true, Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost: gateway.CostProfile{QualityScore: 0.95, AvgLatencyMS: 900},
	}}))

	g := gateway.New(r, gateway.StrategyQuality, nil, "", nil)
	p, err := g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration}})
	require.NoError(t, err)
	assert.Equal(t, "high", p.Metadata().ID)
}

func TestGenerateDelegatesToSelectedProvider(t *testing.T) {
	r := gateway.NewRegistry()
	h := providers.NewHeuristic("h1")
	require.NoError(t, r.Register(h))

	g := gateway.New(r, gateway.StrategyBalanced, nil, "", nil)
	out, id, err := g.Generate(context.Background(), "Hello world. Second sentence. Third.", gateway.TaskRequirements{}, gateway.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "h1", id)
	assert.NotEmpty(t, out)
}

func TestEstimateTokensNonEmpty(t *testing.T) {
	n := gateway.EstimateTokens("the quick brown fox jumps over the lazy dog")
	assert.Greater(t, n, 0)
}

func TestSelectFallsBackThroughChainWhenNoneEligible(t *testing.T) {
	r := gateway.NewRegistry()
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{
		ID: "vision-only", Enabled: true,
		Capabilities: []gateway.Capability{gateway.CapabilityVision},
	}}))
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{ID: "heuristic", Enabled: true}}))

	g := gateway.New(r, gateway.StrategyCost, []string{"missing", "heuristic"}, "", nil)
	p, err := g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityEmbeddings}})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", p.Metadata().ID)
}

func TestSelectFallsBackToConfiguredDefault(t *testing.T) {
	r := gateway.NewRegistry()
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{ID: "fallback-default", Enabled: true}}))

	g := gateway.New(r, gateway.StrategyCost, nil, "fallback-default", nil)
	p, err := g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityEmbeddings}})
	require.NoError(t, err)
	assert.Equal(t, "fallback-default", p.Metadata().ID)
}

func TestSelectReturnsNoEligibleProviderWhenFallbacksExhausted(t *testing.T) {
	r := gateway.NewRegistry()
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{ID: "vision-only", Enabled: true,
		Capabilities: []gateway.Capability{gateway.CapabilityVision}}}))

	g := gateway.New(r, gateway.StrategyCost, []string{"missing"}, "also-missing", nil)
	_, err := g.Select(gateway.TaskRequirements{RequiredCapabilities: []gateway.Capability{gateway.CapabilityEmbeddings}})
	assert.ErrorIs(t, err, gateway.ErrNoEligibleProvider)
}

func TestBalancedStrategyWeighsPreferredForBonus(t *testing.T) {
	r := gateway.NewRegistry()
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{
		ID: "generic", Enabled: true, Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost: gateway.CostProfile{QualityScore: 0.8, AvgLatencyMS: 200, CostPerKInputTokens: 1, CostPerKOutputTokens: 1},
	}}))
	require.NoError(t, r.Register(fakeProvider{meta: gateway.Metadata{
		ID: "preferred", Enabled: true, Capabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		Cost:         gateway.CostProfile{QualityScore: 0.8, AvgLatencyMS: 200, CostPerKInputTokens: 1, CostPerKOutputTokens: 1},
		PreferredFor: []string{"summarization"},
	}}))

	g := gateway.New(r, gateway.StrategyBalanced, nil, "", nil)
	p, err := g.Select(gateway.TaskRequirements{
		RequiredCapabilities: []gateway.Capability{gateway.CapabilityTextGeneration},
		TaskType:             "summarization",
	})
	require.NoError(t, err)
	assert.Equal(t, "preferred", p.Metadata().ID)
}

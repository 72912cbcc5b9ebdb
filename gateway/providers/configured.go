package providers

import (
	"context"

	"github.com/docpipe/docpipe/gateway"
)

// Configured is a Provider whose Metadata comes entirely from a
// config.ProviderConfig entry (spec §6.5's provider list), so an operator
// can describe a fleet of providers' cost/latency/quality profiles for
// selection purposes without this module depending on any one vendor SDK.
// Its calls delegate to Heuristic's deterministic behavior; swapping in a
// real vendor client only requires a new Provider implementation registered
// under the same ID, not a change to the selection logic.
type Configured struct {
	meta gateway.Metadata
	Heuristic
}

// NewConfigured builds a Configured provider reporting meta.
func NewConfigured(meta gateway.Metadata) *Configured {
	return &Configured{meta: meta, Heuristic: Heuristic{id: meta.ID, quality: meta.Cost.QualityScore}}
}

var _ gateway.Provider = (*Configured)(nil)

func (c *Configured) Metadata() gateway.Metadata { return c.meta }

func (c *Configured) Health(_ context.Context) error { return nil }

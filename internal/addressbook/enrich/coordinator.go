// Package enrich attaches network metadata to address book entries without
// issuing redundant remote calls.
package enrich

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	adbkmetrics "github.com/infinex-exchange/wallet.addressbook/internal/addressbook/metrics"
	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/internal/network"
	dErrors "github.com/infinex-exchange/wallet.addressbook/pkg/domain-errors"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
)

// EnrichedEntry is an address book entry projection carrying the resolved
// network descriptor in place of the raw network id.
type EnrichedEntry struct {
	models.AddressBookEntry
	Network network.Network
}

// Coordinator fans out network metadata lookups for entry batches. Lookups
// are de-duplicated per distinct network id and issued in parallel; if any
// lookup fails the whole enrichment fails, never returning partial metadata.
//
// No metadata is cached between batches: every read path observes network
// changes immediately.
type Coordinator struct {
	resolver network.Resolver
	metrics  *adbkmetrics.Metrics
	tracer   trace.Tracer
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithMetrics sets the metrics collector.
func WithMetrics(m *adbkmetrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New constructs a Coordinator over a network resolver.
func New(resolver network.Resolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver: resolver,
		tracer:   otel.Tracer("wallet.addressbook/enrich"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enrich resolves network metadata for a batch of entries. The number of
// remote lookups equals the number of distinct network ids in the batch.
func (c *Coordinator) Enrich(ctx context.Context, entries []*models.AddressBookEntry) ([]*EnrichedEntry, error) {
	ctx, span := c.tracer.Start(ctx, "enrich.Enrich")
	defer span.End()

	if len(entries) == 0 {
		return []*EnrichedEntry{}, nil
	}

	// Network ids are opaque: dedupe on the exact stored value so every
	// entry's id is present in the merge map below.
	distinct := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		distinct[e.NetworkID] = struct{}{}
	}
	netids := make([]string, 0, len(distinct))
	for id := range distinct {
		netids = append(netids, id)
	}
	sort.Strings(netids)

	if c.metrics != nil {
		c.metrics.NetworkLookups.Add(float64(len(netids)))
	}

	// One lookup per distinct id; fail fast cancels the siblings.
	resolved := make([]*network.Network, len(netids))
	g, gctx := errgroup.WithContext(ctx)
	for i, netid := range netids {
		i, netid := i, netid
		g.Go(func() error {
			n, err := c.resolver.GetNetwork(gctx, netid)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeRemoteUnavailable, "failed to resolve network "+netid)
			}
			resolved[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]*network.Network, len(netids))
	for i, netid := range netids {
		byID[netid] = resolved[i]
	}

	out := make([]*EnrichedEntry, len(entries))
	for i, e := range entries {
		out[i] = &EnrichedEntry{
			AddressBookEntry: *e,
			Network:          *byID[e.NetworkID],
		}
	}
	if c.metrics != nil {
		c.metrics.EnrichedEntries.Add(float64(len(out)))
	}
	return out, nil
}

// EnrichOne resolves metadata for a single entry, the degenerate batch of
// one distinct network id.
func (c *Coordinator) EnrichOne(ctx context.Context, e *models.AddressBookEntry) (*EnrichedEntry, error) {
	enriched, err := c.Enrich(ctx, []*models.AddressBookEntry{e})
	if err != nil {
		return nil, err
	}
	return enriched[0], nil
}

// ResolveSymbol maps a network symbol to its id for listing filters,
// including disabled networks. An unrecognized symbol reports ok=false with
// no error so callers can return an empty result set.
func (c *Coordinator) ResolveSymbol(ctx context.Context, symbol string) (netid string, ok bool, err error) {
	ctx, span := c.tracer.Start(ctx, "enrich.ResolveSymbol")
	defer span.End()

	netid, err = c.resolver.SymbolToNetworkID(ctx, symbol, true)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeRemoteUnavailable, "failed to resolve network symbol "+symbol)
	}
	return netid, true, nil
}

package market

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/scrape"
)

// Refresher runs scrapers and applies their results to the tables.
type Refresher struct {
	tables   *Tables
	irdai    scrape.Source[model.MarketDataItem]
	claims   scrape.Source[model.ClaimSettlementItem]
	premiums scrape.Source[model.PremiumItem]
}

// NewRefresher wires the three table sources to tables.
func NewRefresher(
	tables *Tables,
	irdai scrape.Source[model.MarketDataItem],
	claims scrape.Source[model.ClaimSettlementItem],
	premiums scrape.Source[model.PremiumItem],
) *Refresher {
	return &Refresher{tables: tables, irdai: irdai, claims: claims, premiums: premiums}
}

// Tables returns the tables the refresher writes to.
func (r *Refresher) Tables() *Tables { return r.tables }

// RefreshIRDAI scrapes the regulator listing into the IRDAI table. The
// error reports a failed scrape; the table has already been updated
// according to its keep-on-error policy.
func (r *Refresher) RefreshIRDAI(ctx context.Context) (Snapshot[model.MarketDataItem], error) {
	return refresh(ctx, r.tables.IRDAI, r.irdai)
}

// RefreshClaims scrapes claim settlement ratios into the claims table.
func (r *Refresher) RefreshClaims(ctx context.Context) (Snapshot[model.ClaimSettlementItem], error) {
	return refresh(ctx, r.tables.Claims, r.claims)
}

// RefreshPremiums scrapes insurer plan pages into the premiums table.
func (r *Refresher) RefreshPremiums(ctx context.Context) (Snapshot[model.PremiumItem], error) {
	return refresh(ctx, r.tables.Premiums, r.premiums)
}

// Sources lists the refreshable table names.
func Sources() []string {
	return []string{scrape.SourceIRDAI, scrape.SourceClaims, scrape.SourcePremiums}
}

// Refresh refreshes one table by source name.
func (r *Refresher) Refresh(ctx context.Context, source string) error {
	var err error
	switch source {
	case scrape.SourceIRDAI:
		_, err = r.RefreshIRDAI(ctx)
	case scrape.SourceClaims:
		_, err = r.RefreshClaims(ctx)
	case scrape.SourcePremiums:
		_, err = r.RefreshPremiums(ctx)
	default:
		err = eris.Errorf("market: unknown source %q", source)
	}
	return err
}

// RefreshAll refreshes the named tables concurrently. Each table is
// written only by its own scraper and one failure does not cancel the
// others. The returned error joins every failure.
func (r *Refresher) RefreshAll(ctx context.Context, sources ...string) error {
	for _, s := range sources {
		if !slices.Contains(Sources(), s) {
			return eris.Errorf("market: unknown source %q", s)
		}
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range sources {
		g.Go(func() error {
			if err := r.Refresh(ctx, s); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func refresh[T any](ctx context.Context, slot *Slot[T], src scrape.Source[T]) (Snapshot[T], error) {
	if src == nil {
		return slot.Load(), eris.Errorf("market: no scraper configured for %s", slot.Name())
	}
	res := src.Scrape(ctx)
	snap := slot.Apply(res)
	if res.Status == model.StatusFailed {
		return snap, eris.Wrapf(errOrUnknown(res.Err), "market: refresh %s", slot.Name())
	}
	return snap, nil
}

func errOrUnknown(err error) error {
	if err == nil {
		return eris.New("unknown error")
	}
	return err
}

package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
	"github.com/vitrine-shop/backend-loja/internal/obs"
)

// MethodStore lists the configured shipping methods.
type MethodStore interface {
	ListActiveMethods(ctx context.Context) ([]Method, error)
}

// Calculation is the audit record persisted for each quote. Quotes are always
// recomputed; the record exists for pricing analysis, not replay.
type Calculation struct {
	DestinationCEP string
	Region         string
	Approximate    bool
	WeightKg       decimal.Decimal
	OptionCount    int
	CheapestCost   decimal.Decimal
	QuotedAt       time.Time
}

// AuditSink receives quote calculations for asynchronous persistence.
type AuditSink interface {
	EnqueueQuoteAudit(ctx context.Context, calc Calculation) error
}

// Service orchestrates destination resolution and quote building.
type Service struct {
	Methods MethodStore
	Lookup  LocaleLookup
	Audit   AuditSink
	Now     func() time.Time
	// DefaultItemKg substitutes for cart items without a tracked weight.
	DefaultItemKg decimal.Decimal
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote resolves the destination and prices every covering method. A failing
// postal lookup degrades to the CEP prefix table and marks the quote
// approximate; only a malformed or unknown CEP rejects the request.
func (s *Service) Quote(ctx context.Context, rawCEP string, snap cart.Snapshot) (Quote, error) {
	if s == nil || s.Methods == nil {
		return Quote{}, errors.New("shipping service not configured")
	}
	cep := NormalizeCEP(rawCEP)
	if cep == "" {
		s.recordQuote("invalid_destination")
		return Quote{}, ErrInvalidDestination
	}

	region, approximate, err := s.resolveRegion(ctx, cep)
	if err != nil {
		s.recordQuote("invalid_destination")
		return Quote{}, err
	}

	methods, err := s.Methods.ListActiveMethods(ctx)
	if err != nil {
		s.recordQuote("error")
		return Quote{}, err
	}
	quote, err := BuildQuote(methods, snap, cep, region, approximate, s.DefaultItemKg)
	if err != nil {
		if errors.Is(err, ErrNoCoverage) {
			s.recordQuote("no_coverage")
		} else {
			s.recordQuote("error")
		}
		return Quote{}, err
	}
	s.recordQuote("quoted")
	s.audit(ctx, quote)
	return quote, nil
}

func (s *Service) resolveRegion(ctx context.Context, cep string) (string, bool, error) {
	if s.Lookup != nil {
		locale, err := s.Lookup.Lookup(ctx, cep)
		if err == nil {
			return locale.UF, false, nil
		}
		if errors.Is(err, ErrCEPNotFound) {
			// The postal service answered: this CEP does not exist.
			return "", false, ErrInvalidDestination
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("cep", cep).Msg("postal lookup degraded to prefix table")
		if obs.ShippingLookupDegradedTotal != nil {
			obs.ShippingLookupDegradedTotal.Inc()
		}
	}
	region, ok := RegionFromCEP(cep)
	if !ok {
		return "", false, ErrInvalidDestination
	}
	return region, true, nil
}

func (s *Service) audit(ctx context.Context, quote Quote) {
	if s.Audit == nil {
		return
	}
	calc := Calculation{
		DestinationCEP: quote.DestinationCEP,
		Region:         quote.Region,
		Approximate:    quote.Approximate,
		WeightKg:       quote.WeightKg,
		OptionCount:    len(quote.Options),
		QuotedAt:       s.now(),
	}
	if len(quote.Options) > 0 {
		calc.CheapestCost = quote.Options[0].Cost
	}
	if err := s.Audit.EnqueueQuoteAudit(ctx, calc); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to enqueue quote audit")
	}
}

func (s *Service) recordQuote(result string) {
	if obs.ShippingQuotesTotal == nil {
		return
	}
	obs.ShippingQuotesTotal.WithLabelValues(result).Inc()
}

package shipping

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vitrine-shop/backend-loja/internal/cart"
)

var (
	// ErrInvalidDestination is returned when the destination CEP is malformed.
	ErrInvalidDestination = errors.New("invalid destination postal code")
	// ErrNoCoverage is returned when no active method serves the destination.
	ErrNoCoverage = errors.New("no shipping method covers destination")
)

var cepPattern = regexp.MustCompile(`^\d{8}$`)

// NormalizeCEP strips the conventional dash and surrounding whitespace from a
// CEP, returning the bare eight digits or an empty string when malformed.
func NormalizeCEP(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if !cepPattern.MatchString(cleaned) {
		return ""
	}
	return cleaned
}

// Method is one configured carrier service.
type Method struct {
	ID          uuid.UUID       `json:"id"`
	CarrierName string          `json:"carrier"`
	Name        string          `json:"name"`
	BaseCost    decimal.Decimal `json:"baseCost"`
	CostPerKg   decimal.Decimal `json:"costPerKg"`
	MinDays     int             `json:"minDays"`
	MaxDays     int             `json:"maxDays"`
	// RegionCodes limits the method to the listed UF codes. Empty means
	// nationwide coverage.
	RegionCodes []string `json:"regionCodes,omitempty"`
	Active      bool     `json:"isActive"`
}

func (m Method) serves(region string) bool {
	if len(m.RegionCodes) == 0 {
		return true
	}
	for _, code := range m.RegionCodes {
		if strings.EqualFold(code, region) {
			return true
		}
	}
	return false
}

// Option is one priced delivery choice offered to the customer.
type Option struct {
	MethodID uuid.UUID       `json:"methodId"`
	Carrier  string          `json:"carrier"`
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	MinDays  int             `json:"minDays"`
	MaxDays  int             `json:"maxDays"`
	WeightKg decimal.Decimal `json:"weightKg"`
}

// Quote is the full calculator result for one destination.
type Quote struct {
	Options        []Option `json:"options"`
	DestinationCEP string   `json:"destinationCep"`
	Region         string   `json:"region,omitempty"`
	WeightKg       decimal.Decimal `json:"weightKg"`
	// Approximate is set when the postal lookup degraded to the prefix
	// table, so the region is a best-effort guess.
	Approximate bool `json:"approximate"`
}

// MethodCost prices a method for the given chargeable weight:
// base + per-kg rate times weight, rounded half-up to two places.
func MethodCost(m Method, weightKg decimal.Decimal) decimal.Decimal {
	if weightKg.IsNegative() {
		weightKg = decimal.Zero
	}
	return m.BaseCost.Add(m.CostPerKg.Mul(weightKg)).Round(2)
}

// BuildQuote filters methods by region, prices each one for the snapshot's
// chargeable weight and sorts cheapest first (ties broken by faster minimum
// days). defaultItemKg substitutes for items without a recorded weight.
func BuildQuote(methods []Method, snap cart.Snapshot, cep, region string, approximate bool, defaultItemKg decimal.Decimal) (Quote, error) {
	if err := snap.Validate(); err != nil {
		return Quote{}, err
	}
	weight := snap.ChargeableWeightKg(defaultItemKg)

	options := make([]Option, 0, len(methods))
	for _, m := range methods {
		if !m.Active || !m.serves(region) {
			continue
		}
		options = append(options, Option{
			MethodID: m.ID,
			Carrier:  m.CarrierName,
			Name:     m.Name,
			Cost:     MethodCost(m, weight),
			MinDays:  m.MinDays,
			MaxDays:  m.MaxDays,
			WeightKg: weight,
		})
	}
	if len(options) == 0 {
		return Quote{}, ErrNoCoverage
	}
	sort.SliceStable(options, func(i, j int) bool {
		if !options[i].Cost.Equal(options[j].Cost) {
			return options[i].Cost.LessThan(options[j].Cost)
		}
		return options[i].MinDays < options[j].MinDays
	})
	return Quote{
		Options:        options,
		DestinationCEP: cep,
		Region:         region,
		WeightKg:       weight,
		Approximate:    approximate,
	}, nil
}

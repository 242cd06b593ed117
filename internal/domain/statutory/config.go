package statutory

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/money"
)

const (
	DefaultPFWageCeiling   money.Amount = 15000
	DefaultESIGrossCeiling money.Amount = 21000
	DefaultPTState                      = "KA"
)

var (
	DefaultPFRate          = decimal.NewFromInt(12)
	DefaultPensionRate     = money.MustRate("8.33")
	DefaultAdminRate       = money.MustRate("0.67")
	DefaultESIEmployeeRate = money.MustRate("0.75")
	DefaultESIEmployerRate = money.MustRate("3.25")
)

// PTSlab charges Amount when monthly gross is strictly above Above.
type PTSlab struct {
	Above  money.Amount `json:"above"`
	Amount money.Amount `json:"amount"`
}

// Config holds statutory rates. Rates are percentages. Zero values fall back
// to the statutory defaults.
type Config struct {
	PFRate          decimal.Decimal     `json:"pfRate"`
	PFWageCeiling   money.Amount        `json:"pfWageCeiling"`
	PensionRate     decimal.Decimal     `json:"pensionRate"`
	AdminRate       decimal.Decimal     `json:"adminRate"`
	ESIGrossCeiling money.Amount        `json:"esiGrossCeiling"`
	ESIEmployeeRate decimal.Decimal     `json:"esiEmployeeRate"`
	ESIEmployerRate decimal.Decimal     `json:"esiEmployerRate"`
	PTSlabs         map[string][]PTSlab `json:"ptSlabs,omitempty"`
	DefaultState    string              `json:"defaultState"`
}

func DefaultPTSlabs() map[string][]PTSlab {
	return map[string][]PTSlab{
		"KA": {{Above: 15000, Amount: 200}, {Above: 10000, Amount: 150}},
		"MH": {{Above: 10000, Amount: 200}, {Above: 7500, Amount: 175}},
		"TN": {{Above: 12500, Amount: 208}, {Above: 10000, Amount: 171}},
		"WB": {{Above: 40000, Amount: 200}, {Above: 25000, Amount: 150}, {Above: 15000, Amount: 130}, {Above: 10000, Amount: 110}},
	}
}

func DefaultConfig() Config {
	return Config{
		PFRate:          DefaultPFRate,
		PFWageCeiling:   DefaultPFWageCeiling,
		PensionRate:     DefaultPensionRate,
		AdminRate:       DefaultAdminRate,
		ESIGrossCeiling: DefaultESIGrossCeiling,
		ESIEmployeeRate: DefaultESIEmployeeRate,
		ESIEmployerRate: DefaultESIEmployerRate,
		PTSlabs:         DefaultPTSlabs(),
		DefaultState:    DefaultPTState,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PFRate.IsZero() {
		c.PFRate = def.PFRate
	}
	if c.PFWageCeiling <= 0 {
		c.PFWageCeiling = def.PFWageCeiling
	}
	if c.PensionRate.IsZero() {
		c.PensionRate = def.PensionRate
	}
	if c.AdminRate.IsZero() {
		c.AdminRate = def.AdminRate
	}
	if c.ESIGrossCeiling <= 0 {
		c.ESIGrossCeiling = def.ESIGrossCeiling
	}
	if c.ESIEmployeeRate.IsZero() {
		c.ESIEmployeeRate = def.ESIEmployeeRate
	}
	if c.ESIEmployerRate.IsZero() {
		c.ESIEmployerRate = def.ESIEmployerRate
	}
	if strings.TrimSpace(c.DefaultState) == "" {
		c.DefaultState = def.DefaultState
	}
	slabs := def.PTSlabs
	for state, table := range c.PTSlabs {
		slabs[strings.ToUpper(state)] = table
	}
	for state, table := range slabs {
		sorted := append([]PTSlab(nil), table...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Above > sorted[j].Above })
		slabs[state] = sorted
	}
	c.PTSlabs = slabs
	return c
}

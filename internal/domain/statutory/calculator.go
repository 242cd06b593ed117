// Package statutory computes provident fund, employee state insurance and
// professional tax for one pay period. Everything here is pure.
package statutory

import (
	"strings"

	"paycore/internal/domain/money"
)

type PF struct {
	Base     money.Amount `json:"base"`
	Employee money.Amount `json:"employee"`
	Employer money.Amount `json:"employer"`
	Pension  money.Amount `json:"pension"`
	Admin    money.Amount `json:"admin"`
}

type ESI struct {
	Applicable bool         `json:"applicable"`
	Employee   money.Amount `json:"employee"`
	Employer   money.Amount `json:"employer"`
}

type Result struct {
	PF              PF           `json:"pf"`
	ESI             ESI          `json:"esi"`
	ProfessionalTax money.Amount `json:"professionalTax"`
	State           string       `json:"state"`
}

// EmployeeTotal is what the statutory result deducts from the employee.
func (r Result) EmployeeTotal() money.Amount {
	return r.PF.Employee + r.ESI.Employee + r.ProfessionalTax
}

func (r Result) EmployerTotal() money.Amount {
	return r.PF.Employer + r.ESI.Employer
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg.withDefaults()}
}

func (c *Calculator) Config() Config {
	return c.cfg
}

func (c *Calculator) Compute(basic, gross money.Amount, state string) Result {
	state = c.resolveState(state)
	return Result{
		PF:              c.PF(basic),
		ESI:             c.ESI(gross),
		ProfessionalTax: c.ProfessionalTax(gross, state),
		State:           state,
	}
}

func (c *Calculator) PF(basic money.Amount) PF {
	base := money.ClampZero(money.Min(basic, c.cfg.PFWageCeiling))
	employee := money.Percent(base, c.cfg.PFRate)
	return PF{
		Base:     base,
		Employee: employee,
		Employer: employee,
		Pension:  money.Percent(base, c.cfg.PensionRate),
		Admin:    money.Percent(base, c.cfg.AdminRate),
	}
}

// ESI applies only at or below the gross ceiling, never partially.
func (c *Calculator) ESI(gross money.Amount) ESI {
	if gross <= 0 || gross > c.cfg.ESIGrossCeiling {
		return ESI{}
	}
	return ESI{
		Applicable: true,
		Employee:   money.Percent(gross, c.cfg.ESIEmployeeRate),
		Employer:   money.Percent(gross, c.cfg.ESIEmployerRate),
	}
}

func (c *Calculator) ProfessionalTax(gross money.Amount, state string) money.Amount {
	for _, slab := range c.cfg.PTSlabs[c.resolveState(state)] {
		if gross > slab.Above {
			return slab.Amount
		}
	}
	return 0
}

func (c *Calculator) resolveState(state string) string {
	state = strings.ToUpper(strings.TrimSpace(state))
	if _, ok := c.cfg.PTSlabs[state]; ok {
		return state
	}
	return c.cfg.DefaultState
}

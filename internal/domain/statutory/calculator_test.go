package statutory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/money"
)

func TestPFCeiling(t *testing.T) {
	calc := NewCalculator(Config{})

	pf := calc.PF(25000)
	assert.Equal(t, money.Amount(15000), pf.Base)
	assert.Equal(t, money.Amount(1800), pf.Employee)
	assert.Equal(t, money.Amount(1800), pf.Employer)
	assert.Equal(t, money.Amount(1250), pf.Pension)
	assert.Equal(t, money.Amount(101), pf.Admin)

	assert.Equal(t, pf, calc.PF(90000))
}

func TestPFNeverExceedsCeilingBase(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	capped := calc.PF(DefaultPFWageCeiling).Employee
	for basic := money.Amount(0); basic <= 10_000_000; basic += 7919 {
		pf := calc.PF(basic)
		require.LessOrEqual(t, pf.Base, DefaultPFWageCeiling)
		require.LessOrEqual(t, pf.Employee, capped)
	}
}

func TestESIBoundary(t *testing.T) {
	calc := NewCalculator(Config{})

	at := calc.ESI(21000)
	assert.True(t, at.Applicable)
	assert.Equal(t, money.Amount(158), at.Employee)
	assert.Equal(t, money.Amount(683), at.Employer)

	above := calc.ESI(21001)
	assert.False(t, above.Applicable)
	assert.Zero(t, above.Employee)
	assert.Zero(t, above.Employer)
}

func TestProfessionalTax(t *testing.T) {
	calc := NewCalculator(Config{})
	cases := []struct {
		name  string
		gross money.Amount
		state string
		want  money.Amount
	}{
		{"above top bracket", 15001, "KA", 200},
		{"top boundary", 15000, "KA", 150},
		{"middle", 12000, "ka", 150},
		{"lower boundary", 10000, "KA", 0},
		{"unknown state uses default", 20000, "ZZ", 200},
		{"maharashtra", 9000, "MH", 175},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calc.ProfessionalTax(tc.gross, tc.state))
		})
	}
}

func TestCustomConfigOverridesDefaults(t *testing.T) {
	calc := NewCalculator(Config{
		PFWageCeiling: 20000,
		PTSlabs:       map[string][]PTSlab{"ka": {{Above: 0, Amount: 50}}},
	})
	assert.Equal(t, money.Amount(2400), calc.PF(25000).Employee)
	assert.Equal(t, money.Amount(50), calc.ProfessionalTax(100, "KA"))
	assert.Equal(t, DefaultESIGrossCeiling, calc.Config().ESIGrossCeiling)
}

func TestComputeTotals(t *testing.T) {
	calc := NewCalculator(Config{})
	res := calc.Compute(10000, 20000, "")
	assert.Equal(t, "KA", res.State)
	assert.Equal(t, money.Amount(1200), res.PF.Employee)
	assert.Equal(t, money.Amount(150), res.ESI.Employee)
	assert.Equal(t, money.Amount(200), res.ProfessionalTax)
	assert.Equal(t, money.Amount(1550), res.EmployeeTotal())
	assert.Equal(t, money.Amount(1200+650), res.EmployerTotal())
}

// Package documents renders payslips and Form 16 certificates as PDF files
// under a local directory. Files are sealed with the documents key when
// one is configured.
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"paycore/internal/domain/directory"
	"paycore/internal/domain/money"
	"paycore/internal/domain/payroll"
	"paycore/internal/domain/tax"
	"paycore/internal/platform/crypto"
)

var ErrInvalidRef = errors.New("invalid document reference")

type Renderer struct {
	Dir    string
	Crypto *crypto.Service
	now    func() time.Time
}

func New(dir string, c *crypto.Service) *Renderer {
	return &Renderer{Dir: dir, Crypto: c, now: time.Now}
}

// Payslip implements payroll.DocumentSink. The tax record adds the
// year-to-date TDS section when present.
func (r *Renderer) Payslip(_ context.Context, p *payroll.Payroll, rec *tax.Record) (payroll.Document, error) {
	pdf := newPDF(fmt.Sprintf("Payslip for %s %d", time.Month(p.Month), p.Year))

	pdf.SetFont("Helvetica", "", 11)
	line(pdf, "Employee", fmt.Sprintf("%s (%s)", p.EmployeeName, p.EmployeeCode))
	line(pdf, "Department", p.Department)
	line(pdf, "Period", fmt.Sprintf("%s to %s", p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02")))
	line(pdf, "Days worked", p.Attendance.Result.ActualWorkingDays.String())
	if p.Attendance.Result.LOPDays.IsPositive() {
		line(pdf, "Loss of pay days", p.Attendance.Result.LOPDays.String())
	}
	pdf.Ln(4)

	section(pdf, "Earnings")
	row(pdf, "Basic", p.Earnings.Basic)
	row(pdf, "HRA", p.Earnings.HRA)
	for _, a := range p.Earnings.Allowances {
		row(pdf, a.Name, a.Amount)
	}
	row(pdf, "Overtime", p.Earnings.Overtime)
	row(pdf, "Bonus", p.Earnings.Bonus)
	row(pdf, "Arrears", p.Earnings.Arrears)
	total(pdf, "Gross pay", p.GrossPay)

	section(pdf, "Deductions")
	row(pdf, "Provident fund", p.Statutory.PF.Employee)
	row(pdf, "ESI", p.Statutory.ESI.Employee)
	row(pdf, "Professional tax", p.Statutory.ProfessionalTax)
	row(pdf, "Income tax (TDS)", p.Statutory.TDS)
	row(pdf, "Loss of pay", p.Other.LossOfPay)
	row(pdf, "Loan recovery", p.Other.Loan)
	row(pdf, "Advance recovery", p.Other.Advance)
	row(pdf, "Disciplinary", p.Other.Disciplinary)
	for _, c := range p.Other.Custom {
		row(pdf, c.Name, c.Amount)
	}
	total(pdf, "Total deductions", p.TotalDeductions)
	pdf.Ln(2)
	total(pdf, "Net pay", p.NetPay)

	if rec != nil {
		section(pdf, "Income tax "+rec.FinancialYear)
		row(pdf, "Annual liability", rec.TotalTaxLiability)
		row(pdf, "Deducted to date", rec.TDSDeducted())
		line(pdf, "Regime", string(rec.Regime))
	}
	if p.Payment.TransactionRef != "" {
		pdf.Ln(4)
		line(pdf, "Payment reference", p.Payment.TransactionRef)
	}

	now := r.now().UTC()
	ref := filepath.ToSlash(filepath.Join("payslips", fmt.Sprintf("%s-%d.pdf", p.ID, now.Unix())))
	if err := r.write(ref, pdf); err != nil {
		return payroll.Document{}, err
	}
	return payroll.Document{Ref: ref, GeneratedAt: now}, nil
}

// Form16 renders the annual TDS certificate for an approved tax record and
// returns its reference.
func (r *Renderer) Form16(_ context.Context, rec *tax.Record, emp directory.Employee) (string, error) {
	pdf := newPDF("Form 16 - Certificate of tax deducted at source")

	pdf.SetFont("Helvetica", "", 11)
	line(pdf, "Employee", fmt.Sprintf("%s (%s)", emp.FullName(), emp.Code))
	line(pdf, "Financial year", rec.FinancialYear)
	line(pdf, "Regime", string(rec.Regime))
	pdf.Ln(4)

	comp := rec.NewRegime
	if rec.Regime == tax.RegimeOld {
		comp = rec.OldRegime
	}
	section(pdf, "Computation")
	row(pdf, "Gross salary", rec.Salary.Gross)
	if comp != nil {
		row(pdf, "Standard deduction", comp.StandardDeduction)
		row(pdf, "Chapter VI-A deductions", comp.DeclaredDeductions)
		row(pdf, "HRA exemption", comp.HRAExemption)
		total(pdf, "Taxable income", comp.TaxableIncome)
		for _, s := range comp.Slabs {
			row(pdf, fmt.Sprintf("Slab %d - %d at %s%%", s.From, s.To, s.Rate.String()), s.Tax)
		}
		row(pdf, "Health and education cess", comp.Cess)
	}
	total(pdf, "Total tax liability", rec.TotalTaxLiability)

	section(pdf, "Tax deducted")
	for _, posting := range rec.TDSPostings {
		row(pdf, fmt.Sprintf("%s %d", time.Month(posting.Month), posting.Year), posting.Amount)
	}
	total(pdf, "Total deducted", rec.TDSDeducted())

	ref := filepath.ToSlash(filepath.Join("form16", fmt.Sprintf("%s-%s.pdf", rec.EmployeeID, rec.FinancialYear)))
	if err := r.write(ref, pdf); err != nil {
		return "", err
	}
	return ref, nil
}

// Open returns the plain PDF bytes of a stored document.
func (r *Renderer) Open(ref string) ([]byte, error) {
	path, err := r.path(ref)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.Crypto.Decrypt(raw)
}

func (r *Renderer) write(ref string, pdf *gofpdf.Fpdf) error {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return err
	}
	sealed, err := r.Crypto.Encrypt(buf.Bytes())
	if err != nil {
		return err
	}
	path, err := r.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

func (r *Renderer) path(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidRef
	}
	return filepath.Join(r.Dir, clean), nil
}

func newPDF(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
	return pdf
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
}

func line(pdf *gofpdf.Fpdf, label, value string) {
	pdf.Cell(50, 7, label)
	pdf.Cell(0, 7, value)
	pdf.Ln(7)
}

// row skips zero amounts to keep the slip short.
func row(pdf *gofpdf.Fpdf, label string, amount money.Amount) {
	if amount == 0 {
		return
	}
	pdf.Cell(110, 7, label)
	pdf.CellFormat(40, 7, fmt.Sprintf("%d", amount), "", 0, "R", false, 0, "")
	pdf.Ln(7)
}

func total(pdf *gofpdf.Fpdf, label string, amount money.Amount) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(110, 7, label)
	pdf.CellFormat(40, 7, fmt.Sprintf("%d", amount), "T", 0, "R", false, 0, "")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
}

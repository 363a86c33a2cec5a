package services

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PayeeInfo is printed on receipts and encoded into the payment QR code.
type PayeeInfo struct {
	Name     string
	UPIID    string
	Currency string
}

type PDFGenerator struct {
	payee PayeeInfo
	now   func() time.Time
}

func NewPDFGenerator(payee PayeeInfo) *PDFGenerator {
	if payee.Currency == "" {
		payee.Currency = "INR"
	}
	return &PDFGenerator{payee: payee, now: time.Now}
}

// UPIPaymentURI builds a upi://pay link for amount with note as the transaction note.
func UPIPaymentURI(payee PayeeInfo, amount decimal.Decimal, note string) string {
	q := url.Values{}
	q.Set("pa", payee.UPIID)
	q.Set("pn", payee.Name)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", payee.Currency)
	q.Set("tn", note)
	return "upi://pay?" + q.Encode()
}

// WriteReceipt renders a one-page rent receipt. Unpaid records with a
// positive total get a UPI QR code when a payee UPI id is configured.
func (pg *PDFGenerator) WriteReceipt(w io.Writer, rec models.RentRecord, tenant models.TenantConfig) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	title := "Rent Receipt"
	if rec.Status != models.StatusPaid {
		title = "Rent Statement"
	}
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 123, 255)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, fmt.Sprintf("%s - %s", rec.Month, rec.TenantKey))
	pdf.Ln(8)

	// Status badge
	if rec.Status == models.StatusPaid {
		pdf.SetFillColor(212, 237, 218)
		pdf.SetTextColor(21, 87, 36)
	} else {
		pdf.SetFillColor(248, 215, 218)
		pdf.SetTextColor(114, 28, 36)
	}
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, string(rec.Status), "", 0, "C", true, 0, "")
	pdf.Ln(12)

	if pg.payee.Name != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 5, pg.payee.Name)
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 6, "TENANT")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(0, 0, 0)
	name := tenant.Name
	if name == "" {
		name = rec.TenantKey
	}
	pdf.Cell(0, 5, name)
	pdf.Ln(5)
	for _, line := range []string{tenant.Address, tenant.Phone} {
		if line != "" {
			pdf.Cell(0, 5, line)
			pdf.Ln(5)
		}
	}
	pdf.Ln(6)

	// Charges table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(120, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 8, "Amount ("+pg.payee.Currency+")", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Base rent", rec.BaseRent},
		{"Maintenance", rec.Maintenance},
		{"Miscellaneous", rec.Misc},
		{"Energy charges", rec.EnergyCharges},
		{"Gas bill", rec.GasBill},
	}
	for _, r := range rows {
		if r.amount.IsZero() {
			continue
		}
		pdf.CellFormat(120, 7, r.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, r.amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	totalLabel := "Total"
	if rec.TotalPinned {
		totalLabel = "Total (adjusted)"
	}
	pdf.CellFormat(120, 8, totalLabel, "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 8, rec.TotalRent.StringFixed(2), "1", 1, "R", true, 0, "")
	pdf.Ln(10)

	if rec.Status != models.StatusPaid && pg.payee.UPIID != "" && rec.TotalRent.IsPositive() {
		uri := UPIPaymentURI(pg.payee, rec.TotalRent, fmt.Sprintf("Rent %s %s", rec.TenantKey, rec.Month))
		png, err := qrcode.Encode(uri, qrcode.Medium, 280)
		if err != nil {
			return fmt.Errorf("failed to generate payment QR code: %v", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("payment-qr", opts, bytes.NewReader(png))
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Scan to pay via UPI ("+pg.payee.UPIID+")")
		pdf.Ln(8)
		pdf.ImageOptions("payment-qr", 15, pdf.GetY(), 50, 50, false, opts, 0, "")
		pdf.Ln(55)
	}

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.Cell(0, 5, "Generated "+pg.now().Format("02 Jan 2006 15:04"))

	return pdf.Output(w)
}

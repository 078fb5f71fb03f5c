package document

import (
	"bytes"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/pricing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

const (
	marginX      = 20.0
	labelColumn  = 95.0
	detailColumn = 120.0
)

var defaultAccent = [3]int{43, 103, 119}

// PDFGenerator renders quotes with gofpdf using the core Helvetica font.
type PDFGenerator struct{}

func NewPDFGenerator() *PDFGenerator { return &PDFGenerator{} }

func (g *PDFGenerator) Generate(in Input) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Hydropack Quote "+in.QuoteNumber, true)
	pdf.SetCreator(in.Branding.CompanyName, true)
	pdf.SetAutoPageBreak(true, 25)

	r := &renderer{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		accent: parseColor(in.Branding.PrimaryColor),
	}
	r.width, r.height = pdf.GetPageSize()

	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		company := in.Branding.CompanyName
		if company == "" {
			company = "Aquaria"
		}
		pdf.MultiCell(0, 4, r.tr(fmt.Sprintf(
			"Thank you for your interest in %s. This quote is valid for 30 days. "+
				"Aquaria Atmospheric Water Generator units are exempt from sales tax.", company)), "", "C", false)
	})

	pdf.AddPage()
	r.header(in)
	r.customer(in.Customer)
	r.configuration(in.Configuration)
	r.services(in.Configuration)
	r.adjustments(in.Configuration)
	r.warranty(in.Configuration)
	r.lineItems(in.Breakdown)
	r.totals(in)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("quote pdf: output failed number=%s err=%v", in.QuoteNumber, err)
		return nil, fmt.Errorf("write quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	accent [3]int
	width  float64
	height float64
}

func (r *renderer) header(in Input) {
	pdf := r.pdf
	pdf.SetFillColor(243, 244, 246)
	pdf.Rect(0, 0, r.width, 25, "F")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(r.accent[0], r.accent[1], r.accent[2])
	name := in.Branding.CompanyName
	if name == "" {
		name = "Aquaria"
	}
	pdf.Text(15, 15, r.tr(name))

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(55, 65, 81)
	infoX := r.width - 80
	infoY := 9.0
	if in.Branding.Address != "" {
		pdf.Text(infoX, infoY, r.tr(in.Branding.Address))
		infoY += 5
	}
	pdf.Text(infoX, infoY, "Quote Generated: "+in.Date.Format("01/02/2006"))
	infoY += 5
	if in.QuoteNumber != "" {
		pdf.Text(infoX, infoY, "Quote #: "+in.QuoteNumber)
	}

	pdf.SetY(30)
}

func (r *renderer) customer(c quote.Customer) {
	pdf := r.pdf
	c = c.Trimmed()

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(r.accent[0], r.accent[1], r.accent[2])
	pdf.SetX(marginX)
	pdf.Cell(0, 6, "Customer")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	line := func(s string) {
		pdf.SetX(marginX)
		pdf.Cell(0, 5, r.tr(s))
		pdf.Ln(5)
	}
	if c.Company != "" {
		line(c.Company)
		line("Attn: " + c.ContactName)
	} else {
		line(c.ContactName)
	}
	if c.Phone != "" {
		line("Phone: " + c.Phone)
	}
	if c.Email != "" {
		line("Email: " + c.Email)
	}
	line("Service: " + c.ServiceAddress())
	if c.PONumber != "" {
		line("PO / Project: " + c.PONumber)
	}
	pdf.Ln(4)
}

func (r *renderer) section(title string) {
	pdf := r.pdf
	if pdf.GetY()+20 > r.height-25 {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(r.accent[0], r.accent[1], r.accent[2])
	pdf.SetX(marginX)
	pdf.Cell(0, 6, r.tr(title))
	pdf.Ln(7)
	y := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(marginX, y, r.width-marginX, y)
	pdf.Ln(3)
	pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) labelValue(label, value string) {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(marginX + 5)
	pdf.CellFormat(labelColumn-marginX-5, 7, r.tr(label+":"), "", 0, "L", false, 0, "")
	pdf.MultiCell(r.width-labelColumn-marginX, 7, r.tr(value), "", "L", false)
}

func (r *renderer) row(component, qty, description string) {
	pdf := r.pdf
	pdf.SetX(marginX + 5)
	pdf.CellFormat(labelColumn-marginX-5, 7, r.tr(component), "", 0, "L", false, 0, "")
	pdf.CellFormat(detailColumn-labelColumn, 7, r.tr(qty), "", 0, "L", false, 0, "")
	pdf.MultiCell(r.width-detailColumn-marginX, 7, r.tr(description), "", "L", false)
}

func (r *renderer) tableHeader(a, b, c string) {
	r.pdf.SetFont("Helvetica", "B", 11)
	r.row(a, b, c)
	r.pdf.SetFont("Helvetica", "", 11)
}

func (r *renderer) configuration(cfg quote.Configuration) {
	r.section("Main Product")
	r.labelValue("Hydropack Model", rates.Label(rates.KindModel, cfg.Model))
	if cfg.Model != "" && cfg.MobilityAssistance {
		r.labelValue("Mobility Assistance", "Included")
	}

	r.section("Tank Selection")
	r.labelValue("Selected Tank", rates.Label(rates.KindTank, cfg.Tank))
	if cfg.Sensor != "" {
		r.labelValue("Tank Sensor", rates.Label(rates.KindSensor, cfg.Sensor))
	}

	r.section("Additional Filters")
	r.labelValue("Extra Filter(s)", fmt.Sprintf("%s x%d", rates.Label(rates.KindFilter, cfg.Filter), cfg.FilterQuantity))

	r.section("Shipping/Handling")
	r.labelValue("Nearest City", rates.Label(rates.KindCity, cfg.City))
}

func (r *renderer) services(cfg quote.Configuration) {
	r.section("Additional Services")
	r.tableHeader("Component", "Qty", "Description")

	if cfg.UnitPad {
		r.row("Unit Concrete Pad", "1", "Concrete base for main system")
	}
	if cfg.TankPad {
		r.row("Tank Concrete Pad", "1", "Concrete base for tank support")
	}
	for _, s := range cfg.TrenchingSections {
		if s.Type != "" && s.DistanceFeet.IsPositive() {
			r.row(rates.Label(rates.KindTrench, s.Type), s.DistanceFeet.String()+" ft", "Trenching Services")
		}
	}
	for _, s := range cfg.AboveGroundSections {
		if s.Type != "" && s.DistanceFeet.IsPositive() {
			r.row(rates.Label(rates.KindAboveGround, s.Type), s.DistanceFeet.String()+" ft", "Trenching Services")
		}
	}
	switch cfg.ConnectionType {
	case quote.ConnectionTwoWay:
		r.row("Connection Type", "", "Manual 2-way T-valve install")
	case quote.ConnectionThreeWay:
		r.row("Connection Type", "", "Automatic 3-way T-valve install")
	}
	switch cfg.PanelUpgrade {
	case quote.PanelUpgrade:
		r.row("Panel Upgrade", "", "Electrical panel enhancement")
	case quote.SubpanelUpgrade:
		r.row("Subpanel Upgrade", "", "Electrical subpanel support")
	}
	if cfg.Pump != "" {
		r.row("External Water Pump", "1", rates.Label(rates.KindPump, cfg.Pump)+" with installation")
	}
	if cfg.Demolition.Enabled && cfg.Demolition.DistanceFeet.IsPositive() {
		r.row("Demolition", cfg.Demolition.DistanceFeet.String()+" ft", "Removal of existing structures")
	}
}

func (r *renderer) adjustments(cfg quote.Configuration) {
	var active []quote.CustomAdjustment
	for _, a := range cfg.CustomAdjustments {
		if a.Active() && strings.TrimSpace(a.Label) != "" {
			active = append(active, a)
		}
	}
	if len(active) == 0 {
		return
	}

	r.section("Custom Adjustments")
	r.tableHeader("Component", "Amount", "Notes")
	for _, a := range active {
		amount := "+" + formatUSD(a.Amount)
		if a.Amount.IsNegative() {
			amount = formatUSD(a.Amount)
		}
		r.row(strings.TrimSpace(a.Label), amount, strings.TrimSpace(a.Notes))
	}
}

func (r *renderer) warranty(cfg quote.Configuration) {
	r.section("Warranty")
	switch cfg.Warranty {
	case quote.Warranty5:
		r.row(rates.Label(rates.KindWarranty, cfg.Warranty), "", "Extended protection for system")
	case quote.Warranty8:
		r.row(rates.Label(rates.KindWarranty, cfg.Warranty), "", "Extended protection for system")
	default:
		r.row(rates.Label(rates.KindWarranty, quote.WarrantyStandard), "", "Basic coverage included at no cost")
	}
}

func (r *renderer) lineItems(b pricing.Breakdown) {
	if len(b.LineItems) == 0 {
		return
	}
	r.section("Price Summary")
	r.tableHeader("Item", "Qty", "Amount")
	for _, li := range b.LineItems {
		qty := li.Quantity.String()
		if li.Unit != "" {
			qty += " " + li.Unit
		}
		r.row(li.Description, qty, formatUSD(li.LineCost))
	}
}

func (r *renderer) totals(in Input) {
	pdf := r.pdf
	r.section(fmt.Sprintf("%s%% Sales Tax", in.TaxRate.Mul(decimal.NewFromInt(100)).String()))

	right := func(size float64, text string) {
		pdf.SetFontSize(size)
		pdf.SetX(marginX)
		pdf.CellFormat(r.width-2*marginX, 6, r.tr(text), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 10)
	right(10, "Products & Shipping: "+formatUSD(in.Breakdown.Subtotal))
	right(10, "Installation & Services: "+formatUSD(in.Breakdown.InstallRelatedTotal))
	right(10, "Sales Tax: "+formatUSD(in.Breakdown.Tax))

	pdf.SetFont("Helvetica", "B", 10)
	if in.Discounted() {
		label := in.DiscountLabel
		if label == "" {
			label = "Discount"
		}
		right(10, "Original Total: "+formatUSD(in.Total.OriginalTotal))
		right(10, label+": -"+formatUSD(in.Total.DiscountAmount))
		right(13, "Total after Discount: "+formatUSD(in.Total.FinalTotal))
		return
	}
	right(13, "Total: "+formatUSD(in.Total.FinalTotal))
}

// formatUSD renders d as $1,234.56, with a leading minus for negatives.
func formatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + frac
}

func parseColor(hex string) [3]int {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return defaultAccent
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultAccent
	}
	return [3]int{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

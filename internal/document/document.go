// Package document renders a calculated quote into a customer-facing PDF.
package document

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/stgrky/d2d-sales-calculator/internal/pricing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
)

// Branding is the account the document is issued under.
type Branding struct {
	CompanyName  string
	Address      string
	PrimaryColor string
}

// Input is everything a renderer needs. Totals must come from a fresh
// calculation of Configuration.
type Input struct {
	QuoteNumber   string
	Date          time.Time
	Customer      quote.Customer
	Configuration quote.Configuration
	Breakdown     pricing.Breakdown
	Total         quote.Total
	DiscountLabel string
	TaxRate       decimal.Decimal
	Branding      Branding
}

// Discounted reports whether the totals include a campaign discount.
func (in Input) Discounted() bool {
	return in.Total.DiscountAmount.IsPositive()
}

// Generator turns an Input into document bytes.
type Generator interface {
	Generate(in Input) ([]byte, error)
}

const maxFilenameLen = 180

var (
	reservedChars = regexp.MustCompile(`[\\/:"*?<>|]+`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Filename builds the download name for a quote document:
// Hydropack_Quote_<company or contact>_<service address>_<YYYY-MM-DD>.pdf with
// accents folded, path-reserved characters removed and spaces turned into
// underscores. The result is at most 180 bytes.
func Filename(c quote.Customer, date time.Time) string {
	c = c.Trimmed()
	who := c.Company
	if who == "" {
		who = c.ContactName
	}
	if who == "" {
		who = "Customer"
	}
	addr := strings.TrimSpace(strings.Join([]string{c.ServiceStreet, c.ServiceCity, c.ServiceState, c.ServiceZip}, " "))

	name := "Hydropack_Quote_" + who + "_" + addr + "_" + date.Format("2006-01-02") + ".pdf"
	name = foldAccents(name)
	name = reservedChars.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return truncateUTF8(name, maxFilenameLen)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

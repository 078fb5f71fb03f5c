package quote

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
	"time"
)

// HQPartnerCode is the code of the company's own account. Quotes created without
// a partner, or by HQ itself, use DefaultNumberPrefix.
const (
	HQPartnerCode       = "AQUARIA_HQ"
	DefaultNumberPrefix = "AQ"
)

const (
	suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLength   = 6
)

// GenerateNumber returns a human-readable quote number of the form
// PP-YYYYMMDD-XXXXXX, where PP is derived from partnerCode.
func GenerateNumber(partnerCode string, now time.Time) string {
	return generateNumber(partnerCode, now, rand.Reader)
}

func generateNumber(partnerCode string, now time.Time, r io.Reader) string {
	return NumberPrefix(partnerCode) + "-" + now.Format("20060102") + "-" + randomSuffix(r)
}

// NumberPrefix returns the first two letters of partnerCode uppercased, or
// DefaultNumberPrefix for HQ and partner-less quotes.
func NumberPrefix(partnerCode string) string {
	code := strings.TrimSpace(partnerCode)
	if code == "" || code == HQPartnerCode {
		return DefaultNumberPrefix
	}
	runes := []rune(code)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func randomSuffix(r io.Reader) string {
	base := big.NewInt(int64(len(suffixAlphabet)))
	var b strings.Builder
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(r, base)
		if err != nil {
			// Short reads only happen with test readers.
			n = big.NewInt(time.Now().UnixNano() % base.Int64())
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}
	return b.String()
}

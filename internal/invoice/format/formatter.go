package format

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	randPadRe = regexp.MustCompile(`\{RAND(\d+)\}`)
)

const DefaultInvoiceIDTemplate = "F{YYYY}{MM}-{PARTNER}-{RAND6}"

const (
	SuffixMin = 100000
	SuffixMax = 999999
)

// FormatInvoiceID renders an invoice identifier from a template, the
// first day of the settled period, the partner and a numeric suffix.
//
// It performs no I/O and is deterministic for a given suffix.
func FormatInvoiceID(
	template string,
	periodStart time.Time,
	partnerID int64,
	suffix int,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("invoice id template is empty")
	}

	if partnerID <= 0 {
		return "", fmt.Errorf("invalid partner id: %d", partnerID)
	}

	if suffix < 0 {
		return "", fmt.Errorf("invalid invoice suffix: %d", suffix)
	}

	out := template

	out = strings.ReplaceAll(out, "{YYYY}", periodStart.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", periodStart.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", periodStart.Format("01"))
	out = strings.ReplaceAll(out, "{PARTNER}", strconv.FormatInt(partnerID, 10))
	out = strings.ReplaceAll(out, "{RAND}", strconv.Itoa(suffix))

	out = randPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := randPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, suffix)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in invoice id format: %s", out)
	}

	return out, nil
}

// RandomSuffix picks a six digit suffix in [SuffixMin, SuffixMax].
// Uniqueness is enforced by the partner_invoices primary key, not here.
func RandomSuffix() int {
	return SuffixMin + rand.IntN(SuffixMax-SuffixMin+1)
}

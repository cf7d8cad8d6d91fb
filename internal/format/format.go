// Package format renders ranking values the way the viewer displays them.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencySuffix is appended to currency amounts.
const CurrencySuffix = "원"

// Numeric covers the value types the viewer formats.
type Numeric interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

var printer = message.NewPrinter(language.Korean)

// Number renders n with Korean-locale grouping, e.g. 1234567 -> "1,234,567".
func Number[T Numeric](n T) string {
	return printer.Sprint(number.Decimal(n))
}

// Percent renders a rate change with a direction arrow. Zero counts as a decrease.
func Percent(n float64) string {
	arrow := "▼"
	if n > 0 {
		arrow = "▲"
	}
	return fmt.Sprintf("%s %s%%", arrow, strconv.FormatFloat(math.Abs(n), 'f', 1, 64))
}

// Currency renders n followed by the currency suffix.
func Currency[T Numeric](n T) string {
	return Number(n) + CurrencySuffix
}

// DateLabel renders t as "YYYY. MM. DD.".
func DateLabel(t time.Time) string {
	return t.Format("2006. 01. 02.")
}

// DateForAPI turns a DateLabel string into the YYYYMMDD token the ranking API expects.
// Input of any other shape is returned unchanged.
func DateForAPI(label string) string {
	token := stripDate(label)
	if !isDigits(token, 8) {
		return label
	}
	return token
}

// ISOFromDateLabel converts "YYYY. MM. DD." to "YYYY-MM-DD", or "" when the shape is wrong.
func ISOFromDateLabel(label string) string {
	token := stripDate(label)
	if !isDigits(token, 8) {
		return ""
	}
	return token[0:4] + "-" + token[4:6] + "-" + token[6:8]
}

// DateLabelFromISO converts "YYYY-MM-DD" to "YYYY. MM. DD."; other input is returned unchanged.
func DateLabelFromISO(iso string) string {
	token := strings.ReplaceAll(iso, "-", "")
	if !isDigits(token, 8) {
		return iso
	}
	return token[0:4] + ". " + token[4:6] + ". " + token[6:8] + "."
}

// DefaultQueryDate is the label for the day before now; the ranking API has no data for today.
func DefaultQueryDate(now time.Time) string {
	return DateLabel(now.AddDate(0, 0, -1))
}

func stripDate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '.' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package quotes

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// LongDate formats t as "19 de octubre de 2026".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// Amount formats v for the locale with up to two decimals. Digits come from
// the decimal itself, so large amounts print exactly.
func Amount(tag language.Tag, v decimal.Decimal) string {
	p := message.NewPrinter(tag)
	digits := strings.TrimRight(strings.TrimRight(v.Abs().StringFixed(2), "0"), ".")
	whole, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if v.Round(2).IsNegative() {
		b.WriteByte('-')
	}
	if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
		b.WriteString(p.Sprint(number.Decimal(n)))
	} else {
		b.WriteString(groupDigits(whole, groupSeparator(p)))
	}
	if frac != "" {
		b.WriteString(decimalSeparator(p))
		b.WriteString(frac)
	}
	return b.String()
}

func decimalSeparator(p *message.Printer) string {
	out := p.Sprint(number.Decimal(1.5, number.MaxFractionDigits(1)))
	return strings.TrimSuffix(strings.TrimPrefix(out, "1"), "5")
}

func groupSeparator(p *message.Printer) string {
	out := p.Sprint(number.Decimal(int64(1234567)))
	return strings.TrimFunc(strings.SplitN(strings.TrimPrefix(out, "1"), "234", 2)[0], unicode.IsDigit)
}

// groupDigits inserts sep every three digits from the right.
func groupDigits(whole, sep string) string {
	if sep == "" || len(whole) <= 3 {
		return whole
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

// Slug lowercases s, strips accents and keeps ASCII letters and digits,
// joining the rest with single dashes.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

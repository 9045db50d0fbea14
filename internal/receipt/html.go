package receipt

import (
	_ "embed"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed static/index.html
var indexHTML string

//go:embed static/app.css
var appCSS []byte

var templates = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"money":       formatMoney,
	"displayDate": displayDate,
}).Parse(indexHTML))

// formatMoney renders an amount the way it is written in Argentina: $ 1.234,50
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "$ " + sign + b.String() + "," + frac
}

// displayDate renders an ISO 8601 receipt date as dd/mm/yyyy, falling back to the raw value
func displayDate(iso string) string {
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

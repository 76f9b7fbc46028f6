package quotes

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	Brand           = "ENVASES & SOLUCIONES"
	Title           = "Solicitud de Cotización"
	ClientHeading   = "Información del Cliente"
	ProductsHeading = "Productos Solicitados"
	TotalLabel      = "TOTAL ESTIMADO:"
	Disclaimer      = "Este documento es una solicitud de cotización, no una factura."
	BrandLine       = "Envases y Soluciones - www.envasesoluciones.com"

	maxNameRunes   = 25
	truncatedRunes = 22
)

// Columns of the product table, left to right.
var Columns = []string{"Producto", "Código", "Cant.", "Precio Unit.", "Subtotal"}

type DocumentOptions struct {
	Location *time.Location
	Locale   language.Tag
	SiteURL  string
}

// NewDocumentOptions resolves a BCP 47 locale and an IANA zone name. Blank
// values fall back to Spanish and UTC.
func NewDocumentOptions(locale, timeZone, siteURL string) (DocumentOptions, error) {
	opts := DocumentOptions{Location: time.UTC, Locale: language.Spanish, SiteURL: strings.TrimSpace(siteURL)}
	if locale = strings.TrimSpace(locale); locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return DocumentOptions{}, fmt.Errorf("parsing quote locale %q: %w", locale, err)
		}
		opts.Locale = tag
	}
	if timeZone = strings.TrimSpace(timeZone); timeZone != "" {
		loc, err := time.LoadLocation(timeZone)
		if err != nil {
			return DocumentOptions{}, fmt.Errorf("loading quote time zone %q: %w", timeZone, err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// Row is one product line of the quote table.
type Row struct {
	Name        string
	DisplayName string
	Code        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	LidColor    string
}

// Document is the structured content of a quote, independent of the output format.
type Document struct {
	Date        time.Time
	DateLine    string
	Contact     ContactInfo
	ClientLines []string
	Rows        []Row
	Total       decimal.Decimal
	TotalItems  int
	Footer      []string
	SiteURL     string
	Locale      language.Tag
}

// BuildDocument derives the quote document from the contact, the items and now.
// It has no side effects.
func BuildDocument(contact ContactInfo, items []cart.LineItem, now time.Time, opts DocumentOptions) Document {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	locale := opts.Locale
	if locale == language.Und {
		locale = language.Spanish
	}
	local := now.In(loc)

	doc := Document{
		Date:     local,
		DateLine: "Fecha: " + LongDate(local),
		Contact:  contact,
		ClientLines: []string{
			"Nombre: " + contact.FirstName + " " + contact.LastName,
			"Correo: " + contact.Email,
			"Teléfono: " + contact.Phone,
			"Preferencia de contacto: " + contact.Preference.Label(),
		},
		Rows:    make([]Row, 0, len(items)),
		Total:   decimal.Zero,
		Footer:  []string{Disclaimer, BrandLine},
		SiteURL: opts.SiteURL,
		Locale:  locale,
	}

	for _, item := range items {
		row := Row{
			Name:        item.ProductName,
			DisplayName: TruncateName(item.ProductName),
			Code:        item.VariantCode,
			Quantity:    item.Quantity,
			UnitPrice:   item.EffectivePrice(),
			Subtotal:    item.Subtotal(),
			LidColor:    item.SelectedLidColor,
		}
		doc.Rows = append(doc.Rows, row)
		doc.Total = doc.Total.Add(row.Subtotal)
		doc.TotalItems += item.Quantity
	}
	return doc
}

// TruncateName shortens names longer than 25 runes to 22 runes plus "...".
func TruncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameRunes {
		return name
	}
	r := []rune(name)
	return string(r[:truncatedRunes]) + "..."
}

// Money formats an amount for this document's locale.
func (d Document) Money(v decimal.Decimal) string {
	return Amount(d.Locale, v)
}

package quotes

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

type rgb struct{ r, g, b int }

var (
	primaryColor = rgb{74, 103, 65}
	textColor    = rgb{51, 51, 51}
	grayColor    = rgb{128, 128, 128}
	ruleColor    = rgb{204, 204, 204}
	rowRuleColor = rgb{229, 229, 229}
	bandColor    = rgb{242, 242, 242}
)

const (
	qrImageName = "site-qr"
	qrSize      = 45
)

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (w pdfWriter) text(x, y float64, style string, size float64, c rgb, s string) {
	w.pdf.SetFont("Helvetica", style, size)
	w.pdf.SetTextColor(c.r, c.g, c.b)
	w.pdf.Text(x, PageHeight-y, w.tr(s))
}

func (w pdfWriter) line(x1, x2, y, width float64, c rgb) {
	w.pdf.SetDrawColor(c.r, c.g, c.b)
	w.pdf.SetLineWidth(width)
	w.pdf.Line(x1, PageHeight-y, x2, PageHeight-y)
}

// band fills a rectangle whose bottom edge sits at y.
func (w pdfWriter) band(x, y, width, height float64, c rgb) {
	w.pdf.SetFillColor(c.r, c.g, c.b)
	w.pdf.Rect(x, PageHeight-y-height, width, height, "F")
}

// RenderPDF draws the document on A4 pages. The output is stable for a given
// document because both PDF dates are pinned to the document date.
func RenderPDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.Date)
	pdf.SetModificationDate(doc.Date)
	pdf.SetTitle(Title, true)
	pdf.SetAuthor(BrandLine, true)
	w := pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	hasQR := false
	if doc.SiteURL != "" {
		png, err := qrcode.Encode(doc.SiteURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode footer qr: %w", err)
		}
		pdf.RegisterImageOptionsReader(qrImageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
		hasQR = true
	}

	for _, page := range Layout(doc) {
		pdf.AddPage()
		if page.Header {
			drawHeader(w, doc, page)
		}
		for _, placed := range page.Rows {
			drawRow(w, doc, placed)
		}
		if page.HasTotal {
			w.band(45, page.TotalY-5, 505, 25, bandColor)
			w.text(330, page.TotalY+3, "B", 12, textColor, TotalLabel)
			w.text(450, page.TotalY+3, "B", 12, primaryColor, "CRC "+doc.Money(doc.Total))
		}
		drawFooter(w, doc, hasQR)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(w pdfWriter, doc Document, page Page) {
	w.text(50, page.BrandY, "B", 24, primaryColor, Brand)
	w.text(400, page.BrandY, "", 10, grayColor, doc.DateLine)
	w.text(50, page.TitleY, "", 18, textColor, Title)
	w.line(50, 545, page.RuleY, 1, ruleColor)

	w.text(50, page.ClientHeadingY, "B", 14, primaryColor, ClientHeading)
	for i, y := range page.ClientLineY {
		w.text(50, y, "", 11, textColor, doc.ClientLines[i])
	}

	w.text(50, page.ProductsHeadingY, "B", 14, primaryColor, ProductsHeading)
	w.band(45, page.TableY-5, 505, 20, bandColor)
	for i, col := range Columns {
		w.text(columnX[i], page.TableY, "B", 10, textColor, col)
	}
}

func drawRow(w pdfWriter, doc Document, placed PlacedRow) {
	row := placed.Row
	w.text(columnX[0], placed.Y, "", 10, textColor, row.DisplayName)
	if row.LidColor != "" {
		w.text(columnX[0], placed.Y-12, "", 8, grayColor, "Tapa: "+row.LidColor)
	}
	w.text(columnX[1], placed.Y, "", 10, textColor, row.Code)
	w.text(columnX[2], placed.Y, "", 10, textColor, fmt.Sprintf("%d", row.Quantity))
	w.text(columnX[3], placed.Y, "", 10, textColor, "CRC "+doc.Money(row.UnitPrice))
	w.text(columnX[4], placed.Y, "B", 10, primaryColor, "CRC "+doc.Money(row.Subtotal))
	w.line(45, 550, placed.SeparatorY, 0.5, rowRuleColor)
}

func drawFooter(w pdfWriter, doc Document, hasQR bool) {
	w.line(50, 545, footerY+footerRuleGap, 1, ruleColor)
	w.text(50, footerY, "", 9, grayColor, doc.Footer[0])
	w.text(50, footerY-footerLineGap, "", 9, grayColor, doc.Footer[1])
	if hasQR {
		w.pdf.ImageOptions(qrImageName, PageWidth-50-qrSize, PageHeight-footerY-footerRuleGap+3, qrSize, qrSize, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}

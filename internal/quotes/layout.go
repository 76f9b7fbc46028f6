package quotes

// A4 in points. Layout coordinates grow upwards from the bottom edge.
const (
	PageWidth  = 595.28
	PageHeight = 841.89

	marginTop      = 50
	minContentY    = 100
	rowGap         = 20
	lidLineGap     = 15
	plainRowGap    = 5
	footerY        = 50
	footerLineGap  = 15
	footerRuleGap  = 20
	totalOffset    = 10
	clientLineStep = 18
)

// Column x offsets of the product table.
var columnX = [...]float64{50, 200, 280, 330, 410}

// PlacedRow is a table row with its baseline and the separator drawn below it.
type PlacedRow struct {
	Row        Row
	Y          float64
	SeparatorY float64
}

// Page lists what is drawn on one page. Only the first page carries the
// header, client block and table header.
type Page struct {
	Number           int
	Header           bool
	BrandY           float64
	TitleY           float64
	RuleY            float64
	ClientHeadingY   float64
	ClientLineY      []float64
	ProductsHeadingY float64
	TableY           float64
	Rows             []PlacedRow
	HasTotal         bool
	TotalY           float64
}

// Layout paginates the document. Continuation pages start at the top margin
// with neither the header nor the table header repeated.
func Layout(doc Document) []Page {
	y := PageHeight - marginTop
	first := Page{Number: 1, Header: true, BrandY: y}

	y -= 30
	first.TitleY = y
	y -= 20
	first.RuleY = y
	y -= 30
	first.ClientHeadingY = y
	y -= 25
	for range doc.ClientLines {
		first.ClientLineY = append(first.ClientLineY, y)
		y -= clientLineStep
	}
	y -= 20
	first.ProductsHeadingY = y
	y -= 25
	first.TableY = y
	y -= 25

	pages := []Page{first}
	cur := &pages[0]
	newPage := func() {
		pages = append(pages, Page{Number: len(pages) + 1})
		cur = &pages[len(pages)-1]
		y = PageHeight - marginTop
	}

	for _, row := range doc.Rows {
		if y < minContentY {
			newPage()
		}
		placed := PlacedRow{Row: row, Y: y}
		if row.LidColor != "" {
			y -= lidLineGap
		} else {
			y -= plainRowGap
		}
		placed.SeparatorY = y
		cur.Rows = append(cur.Rows, placed)
		y -= rowGap
	}

	if y < minContentY {
		newPage()
	}
	y -= totalOffset
	cur.HasTotal = true
	cur.TotalY = y
	return pages
}

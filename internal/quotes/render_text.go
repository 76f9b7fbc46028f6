package quotes

import (
	"fmt"
	"strings"
)

// RenderText is the plaintext email body.
func RenderText(doc Document) string {
	var b strings.Builder
	b.WriteString("Nueva solicitud de cotización\n\n")

	b.WriteString(strings.ToUpper(ClientHeading) + "\n")
	b.WriteString("-----------------------\n")
	for _, line := range doc.ClientLines {
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + strings.ToUpper(ProductsHeading) + "\n")
	b.WriteString("--------------------\n")
	for _, row := range doc.Rows {
		fmt.Fprintf(&b, "• %s (%s) - Cantidad: %d - Precio: ₡%s", row.Name, row.Code, row.Quantity, doc.Money(row.Subtotal))
		if row.LidColor != "" {
			b.WriteString(" - Color de tapa: " + row.LidColor)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s ₡%s\n\n", TotalLabel, doc.Money(doc.Total))
	b.WriteString("Adjunto encontrará el PDF con el detalle de la cotización.\n")
	return b.String()
}

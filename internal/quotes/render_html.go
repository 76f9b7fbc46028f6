package quotes

import (
	"bytes"
	"fmt"
	"html/template"
)

type htmlRow struct {
	Name      string
	Code      string
	Quantity  int
	UnitPrice string
	Subtotal  string
	LidColor  string
}

type htmlView struct {
	ClientHeading   string
	ProductsHeading string
	Name            string
	Email           string
	Phone           string
	Preference      string
	Rows            []htmlRow
	TotalLabel      string
	Total           string
}

var emailTemplate = template.Must(template.New("quote-email").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4a6741;">Nueva Solicitud de Cotización</h2>
  <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin-bottom: 20px;">
    <h3 style="color: #333; margin-top: 0;">{{.ClientHeading}}</h3>
    <p><strong>Nombre:</strong> {{.Name}}</p>
    <p><strong>Correo:</strong> {{.Email}}</p>
    <p><strong>Teléfono:</strong> {{.Phone}}</p>
    <p><strong>Preferencia de contacto:</strong> {{.Preference}}</p>
  </div>
  <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px;">
    <h3 style="color: #333; margin-top: 0;">{{.ProductsHeading}}</h3>
    <table style="width: 100%; border-collapse: collapse;">
      <thead>
        <tr style="background-color: #4a6741; color: white;">
          <th style="padding: 10px; text-align: left;">Producto</th>
          <th style="padding: 10px; text-align: left;">Código</th>
          <th style="padding: 10px; text-align: center;">Cantidad</th>
          <th style="padding: 10px; text-align: right;">Precio Unit.</th>
          <th style="padding: 10px; text-align: right;">Subtotal</th>
        </tr>
      </thead>
      <tbody>
{{- range .Rows}}
        <tr style="border-bottom: 1px solid #ddd;">
          <td style="padding: 10px;">{{.Name}}{{if .LidColor}}<br><span style="font-size: 12px; color: #666;">Tapa: {{.LidColor}}</span>{{end}}</td>
          <td style="padding: 10px;">{{.Code}}</td>
          <td style="padding: 10px; text-align: center;">{{.Quantity}}</td>
          <td style="padding: 10px; text-align: right;">₡{{.UnitPrice}}</td>
          <td style="padding: 10px; text-align: right; font-weight: bold; color: #4a6741;">₡{{.Subtotal}}</td>
        </tr>
{{- end}}
        <tr style="background-color: #e8f5e9;">
          <td colspan="4" style="padding: 12px; text-align: right; font-weight: bold;">{{.TotalLabel}}</td>
          <td style="padding: 12px; text-align: right; font-weight: bold; color: #4a6741; font-size: 16px;">₡{{.Total}}</td>
        </tr>
      </tbody>
    </table>
  </div>
  <p style="color: #666; font-size: 12px; margin-top: 20px;">Adjunto encontrará el PDF con el detalle completo de la cotización.</p>
</div>
`))

// RenderHTML is the HTML email body. Shopper-provided values are escaped.
func RenderHTML(doc Document) (string, error) {
	view := htmlView{
		ClientHeading:   ClientHeading,
		ProductsHeading: ProductsHeading,
		Name:            doc.Contact.FirstName + " " + doc.Contact.LastName,
		Email:           doc.Contact.Email,
		Phone:           doc.Contact.Phone,
		Preference:      doc.Contact.Preference.Label(),
		TotalLabel:      TotalLabel,
		Total:           doc.Money(doc.Total),
	}
	for _, row := range doc.Rows {
		view.Rows = append(view.Rows, htmlRow{
			Name:      row.Name,
			Code:      row.Code,
			Quantity:  row.Quantity,
			UnitPrice: doc.Money(row.UnitPrice),
			Subtotal:  doc.Money(row.Subtotal),
			LidColor:  row.LidColor,
		})
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render quote html: %w", err)
	}
	return buf.String(), nil
}

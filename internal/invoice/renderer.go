package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer turns an Invoice into the HTML document handed to the PDF
// converter.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"money":    money,
		"subtotal": subtotal,
	}

	tmpl, err := template.New("invoice.html.tmpl").Funcs(funcMap).ParseFS(templatesFS, "templates/invoice.html.tmpl")

	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(inv Invoice) (string, error) {
	var buf bytes.Buffer

	err := r.tmpl.Execute(&buf, inv)

	if err != nil {
		return "", fmt.Errorf("render invoice %s: %w", inv.OrderID, err)
	}

	return buf.String(), nil
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func subtotal(price float64, quantity int) string {
	return money(price * float64(quantity))
}

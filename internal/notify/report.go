package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/xinodeprinz/edstock-server/internal/domain"
)

// Subject of every low-stock email
const Subject = "ALERT: Low Stock Products Report"

const placeholder = "N/A"

// CriticalLevel is the stock at or below which a low-stock product is flagged
// critical: half the threshold, rounded up.
func CriticalLevel(threshold int) int {
	return (threshold + 1) / 2
}

// Severity classifies a low-stock quantity
func Severity(stock, threshold int) string {
	if stock <= CriticalLevel(threshold) {
		return "critical"
	}
	return "low"
}

var reportTemplate = template.Must(template.New("low-stock").Funcs(template.FuncMap{
	"severity": Severity,
	"color": func(severity string) string {
		if severity == "critical" {
			return "red"
		}
		return "orange"
	},
	"orNA": func(s *string) string {
		if s == nil || *s == "" {
			return placeholder
		}
		return *s
	},
	"category": func(p *domain.Product) string {
		if p.Category == nil || p.Category.Name == "" {
			return placeholder
		}
		return p.Category.Name
	},
}).Parse(`<h2>Low Stock Alert</h2>
<p>The following products are running low on stock (below {{.Threshold}} units):</p>
<table border="1" cellpadding="5" style="border-collapse: collapse;">
  <tr style="background-color: #f2f2f2;">
    <th>Product ID</th>
    <th>Name</th>
    <th>Category</th>
    <th>Current Stock</th>
    <th>SKU</th>
    <th>Supplier</th>
  </tr>
{{- range .Products}}
  {{- $sev := severity .StockQuantity $.Threshold}}
  <tr>
    <td>{{.ProductID}}</td>
    <td>{{.Name}}</td>
    <td>{{category .}}</td>
    <td class="{{$sev}}" style="color: {{color $sev}}; font-weight: bold;">{{.StockQuantity}}</td>
    <td>{{orNA .SKU}}</td>
    <td>{{orNA .Supplier}}</td>
  </tr>
{{- end}}
</table>
<p>Please take appropriate action to restock these items.</p>
<p>This is an automated notification from your inventory management system.</p>
`))

// Render builds the HTML body listing every product
func Render(threshold int, products []*domain.Product) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		Threshold int
		Products  []*domain.Product
	}{threshold, products})
	if err != nil {
		return "", fmt.Errorf("failed to render low-stock report: %w", err)
	}
	return buf.String(), nil
}

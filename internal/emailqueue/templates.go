package emailqueue

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lafabrik/boutique-backend/pkg/db/models"
)

// FormatEUR renders integer cents as a French EUR amount ("12,50 €").
func FormatEUR(cents int) string {
	amount := decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100))
	return strings.ReplaceAll(amount.StringFixed(2), ".", ",") + " €"
}

type templateLine struct {
	Name  string
	Qty   int
	Total string
}

type confirmationData struct {
	OrderID    string
	Lines      []templateLine
	ItemsTotal string
	Shipping   string
	GrandTotal string
	OrderURL   string
}

type pickupData struct {
	confirmationData
	QRCodeDataURI  template.URL
	PickupURL      string
	PickupLocation string
	ExpiresAt      string
}

type shippedData struct {
	confirmationData
	TrackingNumber string
	TrackingURL    string
}

type reminderData struct {
	confirmationData
	PickupLocation string
	ExpiresAt      string
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "layout_top"}}
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Helvetica, Arial, sans-serif; background: #F3EFEA; margin: 0; padding: 24px;">
<div style="max-width: 560px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 32px;">
<h1 style="color: #503B64; font-size: 22px;">{{.}}</h1>
<p>Bonjour,</p>
{{end}}

{{define "layout_bottom"}}
<hr style="border: none; border-top: 1px solid #E5E0D8; margin: 24px 0;">
<p style="color: #826E96; font-size: 12px;">Boutique La Fabrik · Commande {{.}}</p>
</div>
</body>
</html>
{{end}}

{{define "order_lines"}}
<table style="width: 100%; border-collapse: collapse; margin: 16px 0;">
{{range .Lines}}
<tr>
<td style="padding: 6px 0;">{{.Name}} × {{.Qty}}</td>
<td style="text-align: right;">{{.Total}}</td>
</tr>
{{end}}
<tr><td style="padding: 6px 0; border-top: 1px solid #E5E0D8;">Sous-total</td><td style="text-align: right; border-top: 1px solid #E5E0D8;">{{.ItemsTotal}}</td></tr>
<tr><td style="padding: 6px 0;">Livraison</td><td style="text-align: right;">{{.Shipping}}</td></tr>
<tr><td style="padding: 6px 0; font-weight: bold;">Total</td><td style="text-align: right; font-weight: bold;">{{.GrandTotal}}</td></tr>
</table>
{{end}}

{{define "delivery_confirmation"}}
{{template "layout_top" "Votre commande est confirmée"}}
<p>Merci pour votre commande. Nous préparons vos articles et vous préviendrons dès leur expédition.</p>
{{template "order_lines" .}}
<p><a href="{{.OrderURL}}" style="color: #503B64;">Suivre ma commande</a></p>
{{template "layout_bottom" .OrderID}}
{{end}}

{{define "pickup_confirmation"}}
{{template "layout_top" "Votre commande est prête à retirer"}}
<p>Présentez ce QR code lors du retrait de votre commande au point {{.PickupLocation}}.</p>
<p style="text-align: center;"><img src="{{.QRCodeDataURI}}" alt="QR code de retrait" width="256" height="256"></p>
<p>Si le QR code ne s'affiche pas, utilisez ce lien : <a href="{{.PickupURL}}" style="color: #503B64;">{{.PickupURL}}</a></p>
<p>Votre code de retrait est valable jusqu'au {{.ExpiresAt}}.</p>
{{template "order_lines" .}}
{{template "layout_bottom" .OrderID}}
{{end}}

{{define "shipped_notification"}}
{{template "layout_top" "Votre colis a été expédié"}}
<p>Votre commande est en route. Numéro de suivi : <strong>{{.TrackingNumber}}</strong></p>
<p><a href="{{.TrackingURL}}" style="color: #503B64;">Suivre mon colis</a></p>
{{template "order_lines" .}}
{{template "layout_bottom" .OrderID}}
{{end}}

{{define "pickup_reminder"}}
{{template "layout_top" "Votre commande vous attend"}}
<p>Votre commande est toujours disponible au point {{.PickupLocation}}. Le QR code reçu dans votre email de confirmation reste valable jusqu'au {{.ExpiresAt}}.</p>
{{template "order_lines" .}}
{{template "layout_bottom" .OrderID}}
{{end}}
`))

func buildConfirmationData(order *models.Order, baseURL string) confirmationData {
	lines := make([]templateLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, templateLine{
			Name:  line.NameSnapshot,
			Qty:   line.Qty,
			Total: FormatEUR(line.UnitPriceCents * line.Qty),
		})
	}
	return confirmationData{
		OrderID:    order.ID.String(),
		Lines:      lines,
		ItemsTotal: FormatEUR(order.ItemsTotalCents),
		Shipping:   FormatEUR(order.ShippingTotalCents),
		GrandTotal: FormatEUR(order.GrandTotalCents),
		OrderURL:   fmt.Sprintf("%s/ma-commande/%s", baseURL, order.ID),
	}
}

func formatExpiry(expiresAt time.Time) string {
	return expiresAt.Format("02/01/2006")
}

func templateURL(raw string) template.URL {
	return template.URL(raw)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", name, err)
	}
	return buf.String(), nil
}

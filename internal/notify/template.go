package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"storefront-agent/internal/db"
)

const trackURL = "https://cycle-harmony.netlify.app/profile"

var orderTemplate = template.Must(template.New("order").Parse(`
<div style="font-family: sans-serif; max-width: 600px; margin: auto; border: 1px solid #fce7f3; border-radius: 12px; overflow: hidden;">
  <div style="background: linear-gradient(to right, #ec4899, #8b5cf6); padding: 24px; text-align: center; color: white;">
    <h1 style="margin: 0; font-size: 24px;">Cycle Harmony</h1>
    <p style="margin: 8px 0 0; opacity: 0.8;">Your Wellness Journey</p>
  </div>
  <div style="padding: 32px; color: #1f2937;">
    {{if .Confirmation}}<h2 style="margin-top: 0;">Thank you for your order!</h2>{{else}}<h2 style="margin-top: 0;">Order Status Updated</h2>{{end}}
    <p>Hi {{.Order.FullName}},</p>
    {{if .Confirmation}}
    <p>We've received your order for the <b>{{.Order.Phase}} Healthy Laddus</b>. Our team is now preparing it with care.</p>
    {{else}}
    <p>Your order status has been updated to: <span style="background: #fdf2f8; color: #db2777; padding: 4px 8px; border-radius: 4px; font-weight: bold;">{{.Order.OrderStatus}}</span></p>
    {{end}}
    <div style="background: #f9fafb; padding: 20px; border-radius: 8px; margin: 24px 0;">
      <h3 style="margin-top: 0; font-size: 14px; text-transform: uppercase; color: #6b7280;">Order Summary</h3>
      <table style="width: 100%; border-collapse: collapse;">
        <tr><td style="padding: 8px 0; color: #4b5563;">Order ID:</td><td style="padding: 8px 0; text-align: right; font-weight: bold;">#{{.DisplayID}}</td></tr>
        <tr><td style="padding: 8px 0; color: #4b5563;">Products:</td><td style="padding: 8px 0; text-align: right; font-weight: bold;">{{.Order.Phase}} Laddus ({{.Order.TotalQuantity}} Units)</td></tr>
        <tr><td style="padding: 8px 0; color: #4b5563;">Amount:</td><td style="padding: 8px 0; text-align: right; font-weight: bold; color: #db2777;">₹{{.Amount}}</td></tr>
      </table>
    </div>
    <p style="text-align: center; margin-top: 32px;">
      <a href="{{.TrackURL}}" style="background: #db2777; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; font-weight: bold; display: inline-block;">Track My Order</a>
    </p>
  </div>
</div>
`))

type templateData struct {
	Order        *db.Order
	Confirmation bool
	DisplayID    string
	Amount       string
	TrackURL     string
}

// Subject returns the email subject line for kind.
func Subject(order *db.Order, kind Kind) string {
	if kind == KindConfirmation {
		return "Order Confirmed - #" + order.DisplayID()
	}
	return fmt.Sprintf("Order Update: %s - #%s", order.OrderStatus, order.DisplayID())
}

// Render builds the message for order addressed to its email on file.
func Render(order *db.Order, kind Kind) (Message, error) {
	if order == nil {
		return Message{}, fmt.Errorf("render %s email: nil order", kind)
	}

	var buf bytes.Buffer
	err := orderTemplate.Execute(&buf, templateData{
		Order:        order,
		Confirmation: kind == KindConfirmation,
		DisplayID:    order.DisplayID(),
		Amount:       fmt.Sprintf("%g", order.TotalPrice),
		TrackURL:     trackURL,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}

	return Message{
		To:      order.Email,
		Subject: Subject(order, kind),
		HTML:    buf.String(),
	}, nil
}

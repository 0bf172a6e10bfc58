package notifier

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// Message is a rendered customer notification
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Notifier delivers a message to a customer
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// OrderPlacedMessage renders the order confirmation sent after checkout
func OrderPlacedMessage(customer *models.Customer, event *models.OrderPlacedEvent) Message {
	total := event.TotalAmount.StringFixed(2)

	return Message{
		To:      customer.Email,
		Subject: fmt.Sprintf("Order #%d Confirmation - Thank You for Your Purchase!", event.OrderID),
		TextBody: fmt.Sprintf(
			"Dear %s,\n\nThank you for your order! Your order #%d has been successfully placed.\n\n"+
				"Order ID: %d\nItems: %d\nTotal Amount: %s\nPayment: %s\n\n"+
				"We'll send you another email when your order ships.",
			customer.Username, event.OrderID, event.OrderID, len(event.Items), total, paymentLabel(event.PaymentMethod)),
		HTMLBody: fmt.Sprintf(`<html><body>
<p>Dear %s,</p>
<p>Thank you for your order! Your order #%d has been successfully placed.</p>
<ul>
<li>Order ID: %d</li>
<li>Items: %d</li>
<li>Total Amount: %s</li>
<li>Payment: %s</li>
</ul>
<p>We'll send you another email when your order ships.</p>
</body></html>`,
			customer.Username, event.OrderID, event.OrderID, len(event.Items), total, paymentLabel(event.PaymentMethod)),
	}
}

// StatusChangedMessage renders the update sent when an order moves along its lifecycle
func StatusChangedMessage(customer *models.Customer, event *models.OrderStatusChangedEvent) Message {
	return Message{
		To:      customer.Email,
		Subject: fmt.Sprintf("Order #%d is now %s", event.OrderID, event.NewStatus),
		TextBody: fmt.Sprintf("Dear %s,\n\nYour order #%d changed from %s to %s.",
			customer.Username, event.OrderID, event.OldStatus, event.NewStatus),
		HTMLBody: fmt.Sprintf("<html><body><p>Dear %s,</p><p>Your order #%d changed from <b>%s</b> to <b>%s</b>.</p></body></html>",
			customer.Username, event.OrderID, event.OldStatus, event.NewStatus),
	}
}

func paymentLabel(m models.PaymentMethod) string {
	switch m {
	case models.PaymentMobileMoney:
		return "Mobile Money"
	case models.PaymentCreditCard:
		return "Credit Card"
	case models.PaymentDebitCard:
		return "Debit Card"
	case models.PaymentCashOnDelivery:
		return "Cash on Delivery"
	}
	return string(m)
}

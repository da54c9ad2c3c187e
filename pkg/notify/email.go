package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/example/cartshop/pkg/config"
	"github.com/example/cartshop/pkg/models"
	"github.com/keighl/postmark"
)

type mailSender interface {
	SendEmail(email postmark.Email) (postmark.EmailResponse, error)
}

// EmailNotifier mails the seller about every new order and sends the buyer a
// confirmation when the order carries an email address.
type EmailNotifier struct {
	client mailSender
	from   string
	seller string
}

func NewEmailNotifier(cfg *config.NotificationConfig) *EmailNotifier {
	return &EmailNotifier{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.From,
		seller: cfg.SellerEmail,
	}
}

func (n *EmailNotifier) Notify(_ context.Context, order *models.Order) error {
	if n.seller != "" {
		if err := n.send(n.seller, fmt.Sprintf("New order #%d", order.ID), sellerBody(order)); err != nil {
			return err
		}
	}
	if order.Email != "" {
		if err := n.send(order.Email, "Order Confirmation", buyerBody(order)); err != nil {
			return err
		}
	}
	return nil
}

func (n *EmailNotifier) send(to, subject, body string) error {
	_, err := n.client.SendEmail(postmark.Email{
		From:     n.from,
		To:       to,
		Subject:  subject,
		HtmlBody: body,
		Tag:      "order",
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func lines(order *models.Order) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%s x %d @ %s</li>", html.EscapeString(item.ProductName), item.Quantity, item.Price.StringFixed(2))
	}
	b.WriteString("</ul>")
	return b.String()
}

func sellerBody(order *models.Order) string {
	return fmt.Sprintf(
		"<strong>Order #%d</strong> was placed.<br>Status: %s<br>Payment method: %s<br>Total: <strong>%s</strong>%s",
		order.ID, order.Status, html.EscapeString(order.PaymentMethod), order.TotalPrice.StringFixed(2), lines(order))
}

func buyerBody(order *models.Order) string {
	return fmt.Sprintf(
		"<strong>Thank you for your purchase!</strong><br>Your order #%d has been placed.<br>Total Amount: <strong>%s</strong><br>Payment Method: <strong>%s</strong>%s",
		order.ID, order.TotalPrice.StringFixed(2), html.EscapeString(order.PaymentMethod), lines(order))
}

package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// Mailer errors
var (
	ErrDisabled     = errors.New("mailer: delivery disabled")
	ErrMissingEmail = errors.New("mailer: order has no recipient email")
)

// sendFunc matches net/smtp.SendMail, swappable for tests
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends order confirmation emails over SMTP.
// Delivery is best-effort: callers run it detached from the checkout
// response and only log failures.
type SMTPMailer struct {
	config config.SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

// NewSMTPMailer creates a mailer from SMTP configuration
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: cfg,
		logger: logger.Named("mailer"),
		send:   smtp.SendMail,
	}
}

// SendOrderConfirmation emails the shopper a summary of their new order
func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	if !m.config.Enabled {
		return ErrDisabled
	}
	recipient := o.ShippingAddress.Email
	if recipient == "" {
		return ErrMissingEmail
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.buildConfirmation(recipient, o)
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.config.From, []string{recipient}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send confirmation for %s: %w", o.ExternalReference, err)
		}
		m.logger.Info("order confirmation sent",
			zap.String("reference", o.ExternalReference),
			zap.String("recipient", recipient))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *SMTPMailer) buildConfirmation(recipient string, o *order.Order) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: Order confirmation %s\r\n", o.ExternalReference)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", o.ShippingAddress.FullName)
	fmt.Fprintf(&b, "We received your order %s.\r\n\r\n", o.ExternalReference)
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  %d x %s  %s\r\n", item.Quantity, item.Name, item.Amount.StringFixed(2))
	}
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Subtotal: %s\r\n", o.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax:      %s\r\n", o.TaxAmount.StringFixed(2))
	fmt.Fprintf(&b, "Total:    %s\r\n\r\n", o.Total.StringFixed(2))
	fmt.Fprintf(&b, "Shipping to: %s, %s, %s\r\n", o.ShippingAddress.Line1, o.ShippingAddress.City, o.ShippingAddress.Country)

	return []byte(b.String())
}

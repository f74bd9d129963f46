package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/cenkalti/backoff/v5"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"InternHub-backend/internal/model"
)

const emailSubject = "InternHub update"

// mailSender is the part of the SendGrid client the deliverer uses.
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailDeliverer sends notifications through SendGrid.
type EmailDeliverer struct {
	client     mailSender
	senderName string
	sender     string
}

// NewEmailDeliverer creates a SendGrid backed deliverer.
func NewEmailDeliverer(apiKey, sender, senderName string) *EmailDeliverer {
	return &EmailDeliverer{
		client:     sendgrid.NewSendClient(apiKey),
		sender:     sender,
		senderName: senderName,
	}
}

// Channel implements Deliverer.
func (e *EmailDeliverer) Channel() string { return "email" }

// Deliver implements Deliverer.
func (e *EmailDeliverer) Deliver(ctx context.Context, recipient model.User, message string) error {
	if recipient.Email == nil || *recipient.Email == "" {
		return ErrNoAddress
	}

	from := mail.NewEmail(e.senderName, e.sender)
	to := mail.NewEmail(recipient.Username, *recipient.Email)
	body := fmt.Sprintf(
		`<html><body style="font-family: Arial, sans-serif;"><p>Dear %s,</p><p>%s</p><p>InternHub Team</p></body></html>`,
		html.EscapeString(recipient.Username), html.EscapeString(message),
	)

	resp, err := e.client.SendWithContext(ctx, mail.NewSingleEmail(from, emailSubject, to, message, body))
	if err != nil {
		return err
	}
	return classifyStatus(resp.StatusCode, resp.Body)
}

// classifyStatus turns an HTTP status from a delivery gateway into an error.
// Client errors other than 408 and 429 are not retried.
func classifyStatus(status int, body string) error {
	if status < http.StatusBadRequest {
		return nil
	}
	err := fmt.Errorf("gateway answered %d: %s", status, body)
	if status < http.StatusInternalServerError && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout {
		return backoff.Permanent(err)
	}
	return err
}

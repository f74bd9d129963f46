package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"InternHub-backend/internal/model"
)

// WhatsAppDeliverer posts notifications to an HTTP WhatsApp gateway.
type WhatsAppDeliverer struct {
	client *resty.Client
	apiURL string
}

type whatsAppMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewWhatsAppDeliverer creates a deliverer posting to apiURL with apiKey as bearer token.
func NewWhatsAppDeliverer(apiURL, apiKey string) *WhatsAppDeliverer {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &WhatsAppDeliverer{client: client, apiURL: apiURL}
}

// Channel implements Deliverer.
func (w *WhatsAppDeliverer) Channel() string { return "whatsapp" }

// Deliver implements Deliverer.
func (w *WhatsAppDeliverer) Deliver(ctx context.Context, recipient model.User, message string) error {
	if recipient.Tel == nil || *recipient.Tel == "" {
		return ErrNoAddress
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(whatsAppMessage{To: *recipient.Tel, Message: message}).
		Post(w.apiURL)
	if err != nil {
		return err
	}
	return classifyStatus(resp.StatusCode(), resp.String())
}

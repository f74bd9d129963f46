// Package render is the client side of the document rendering service that
// turns certificate fields into a downloadable document.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Fields are the values printed on a certificate.
type Fields struct {
	CertificateID   string    `json:"certificate_id"`
	HolderName      string    `json:"holder_name"`
	InternshipTitle string    `json:"internship_title"`
	CompletionDate  time.Time `json:"completion_date"`
	DurationLabel   string    `json:"duration_label"`
}

// Renderer produces a document for the given fields and returns its URL.
type Renderer interface {
	Render(ctx context.Context, fields Fields) (string, error)
}

// HTTPRenderer calls a remote rendering service.
type HTTPRenderer struct {
	client   *resty.Client
	endpoint string
	maxTries uint
	log      logrus.FieldLogger
}

type renderResponse struct {
	FileURL string `json:"file_url"`
}

// NewHTTPRenderer creates a renderer posting to endpoint. Each attempt is
// bounded by timeout and at most maxTries attempts are made.
func NewHTTPRenderer(endpoint, apiKey string, timeout time.Duration, maxTries uint, log logrus.FieldLogger) *HTTPRenderer {
	client := resty.New().SetTimeout(timeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if maxTries == 0 {
		maxTries = 1
	}
	return &HTTPRenderer{client: client, endpoint: endpoint, maxTries: maxTries, log: log}
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, fields Fields) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond

	fileURL, err := backoff.Retry(ctx, func() (string, error) {
		var out renderResponse
		resp, err := r.client.R().
			SetContext(ctx).
			SetBody(fields).
			SetResult(&out).
			Post(r.endpoint)
		if err != nil {
			return "", err
		}
		if resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests {
			return "", fmt.Errorf("renderer answered %d", resp.StatusCode())
		}
		if resp.IsError() {
			return "", backoff.Permanent(fmt.Errorf("renderer rejected request with %d: %s", resp.StatusCode(), resp.String()))
		}
		if strings.TrimSpace(out.FileURL) == "" {
			return "", backoff.Permanent(errors.New("renderer returned no file url"))
		}
		return out.FileURL, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxTries))
	if err != nil {
		r.log.WithError(err).WithField("certificate_id", fields.CertificateID).Warn("certificate rendering failed")
		return "", err
	}
	return fileURL, nil
}

// LinkRenderer is used when no rendering service is configured. It points the
// document URL at the public verification page of the certificate.
type LinkRenderer struct {
	PublicBaseURL string
}

// Render implements Renderer.
func (l LinkRenderer) Render(_ context.Context, fields Fields) (string, error) {
	if fields.CertificateID == "" {
		return "", errors.New("certificate id is required")
	}
	return fmt.Sprintf("%s/api/v1/certificates/verify/%s", strings.TrimRight(l.PublicBaseURL, "/"), url.PathEscape(fields.CertificateID)), nil
}

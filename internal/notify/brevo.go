// Package notify sends transactional email through the Brevo v3 API.
//
// Two messages leave this system: the password-reset OTP and the
// feedback relay to administrators. Both go through the same /smtp/email
// endpoint with an api-key header. The package talks plain HTTP+JSON —
// the API surface we use is one endpoint, which doesn't justify a
// vendor SDK dependency.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
)

const defaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// Config holds the Brevo credentials and sender identity.
type Config struct {
	APIKey      string
	SenderName  string
	SenderEmail string
}

// Configured reports whether enough is present to send email.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.SenderEmail != ""
}

// Mailer sends transactional email via Brevo. The zero value is not
// usable; construct with NewMailer.
type Mailer struct {
	cfg      Config
	endpoint string
	client   *http.Client
}

// NewMailer creates a Mailer. An unconfigured Config is allowed — every
// send then fails with apperror.ErrNotConfigured, which callers treat
// as a logged, non-fatal delivery failure.
func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		cfg:      cfg,
		endpoint: defaultEndpoint,
		// Timeout covers the whole exchange. A stalled mail provider
		// must not pin request goroutines.
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// address is Brevo's {email, name} object, used for sender and
// recipients alike.
type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      address   `json:"sender"`
	To          []address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
}

// SendOTP emails a password-reset code to its owner.
func (m *Mailer) SendOTP(ctx context.Context, toEmail, toName, code string) error {
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Your OTP for password reset is: <b>%s</b></p><p>This code is valid for 10 minutes.</p>",
		toName, code,
	)
	return m.send(ctx, sendRequest{
		Sender:      address{Email: m.cfg.SenderEmail, Name: m.cfg.SenderName},
		To:          []address{{Email: toEmail, Name: toName}},
		Subject:     "Your OTP for Password Reset",
		HTMLContent: body,
	})
}

// SendFeedback relays a user's feedback message to one administrator.
// The service layer loops over admins and calls this once per recipient
// so a single bad address can't block the rest.
func (m *Mailer) SendFeedback(ctx context.Context, admin *model.User, from *model.User, message string) error {
	body := fmt.Sprintf(
		"<p>New feedback from %s (%s):</p><blockquote>%s</blockquote>",
		from.Name, from.Email, message,
	)
	return m.send(ctx, sendRequest{
		Sender:      address{Email: m.cfg.SenderEmail, Name: m.cfg.SenderName},
		To:          []address{{Email: admin.Email, Name: admin.Name}},
		Subject:     "New Feedback Received",
		HTMLContent: body,
	})
}

func (m *Mailer) send(ctx context.Context, req sendRequest) error {
	if !m.cfg.Configured() {
		return apperror.NotConfigured("email delivery")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("notify: marshaling email payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: building email request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("api-key", m.cfg.APIKey)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return apperror.Upstream("brevo", err)
	}
	defer resp.Body.Close()

	// Brevo returns 201 for a queued message, 202 for scheduled.
	if resp.StatusCode >= 300 {
		// Body is capped: error responses are small JSON, and an
		// unbounded read of a misbehaving upstream is a liability.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return apperror.Upstream("brevo",
			fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(detail)))
	}
	return nil
}

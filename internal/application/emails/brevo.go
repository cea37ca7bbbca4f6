package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails. Nil = no-op.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
	SendInvite(ctx context.Context, toEmail, inviteLink, workspaceName, role, subject string) error
}

// BrevoClient sends emails via the Brevo API. Env: BREVO_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@voicepost.io"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "VoicePost"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome sends the welcome email after account creation.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if c.APIKey == "" {
		return nil
	}
	if firstName == "" {
		firstName = "there"
	}
	return c.send(ctx, toEmail, "Welcome to VoicePost!", EmailLayout(welcomeContent(firstName)))
}

// SendInvite sends the invitation email. Subject is caller-provided so
// resends can say "Reminder: ...".
func (c *BrevoClient) SendInvite(ctx context.Context, toEmail, inviteLink, workspaceName, role, subject string) error {
	if c.APIKey == "" {
		return nil
	}
	return c.send(ctx, toEmail, subject, EmailLayout(invitationContent(inviteLink, workspaceName, role)))
}

func welcomeContent(userName string) string {
	return fmt.Sprintf(`
    <h1>Welcome to VoicePost, %s!</h1>
    <p>Your account is ready. Record a voice note and we'll turn it into polished LinkedIn post drafts in seconds.</p>
    <center>
      <a href="https://app.voicepost.io/" class="vp-button">Record your first note</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      If you did not sign up for this account, please contact our support team immediately.
    </p>
    <p>— The VoicePost Team</p>
`, EscapeHTML(userName))
}

func invitationContent(inviteLink, workspaceName, role string) string {
	return fmt.Sprintf(`
    <h1>You've Been Invited to Join %s</h1>
    <p>You have been invited to the <strong>%s</strong> workspace on <strong>VoicePost</strong> as a <strong>%s</strong>.</p>
    <p>Click the button below to accept your invitation:</p>
    <center>
      <a href="%s" class="vp-button">Accept Invitation</a>
    </center>
    <p style="margin-top:20px;font-size:14px;color:#666;">
      This invitation link will expire in 7 days. If you were not expecting this invitation, you can safely ignore this email.
    </p>
    <p>— The VoicePost Team</p>
`, EscapeHTML(workspaceName), EscapeHTML(workspaceName), EscapeHTML(role), inviteLink)
}

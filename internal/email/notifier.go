package email

import (
	"context"
	"fmt"
	"net/url"

	"github.com/BradenHooton/tipoca/internal/models"
)

const subjectNewLogin = "New login identified"

// Notifier renders account notifications and hands them to a Sender,
// normally a Dispatcher so callers never wait on delivery.
type Notifier struct {
	sender   Sender
	tmpl     *renderer
	platform string
	domain   string
}

func NewNotifier(sender Sender, platform, domain string) (*Notifier, error) {
	tmpl, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Notifier{sender: sender, tmpl: tmpl, platform: platform, domain: domain}, nil
}

func (n *Notifier) send(ctx context.Context, kind, to, subject string, data templateData) error {
	data.Platform = n.platform
	data.To = to

	html, text, err := n.tmpl.render(kind, data)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, Message{To: to, Subject: subject, HTML: html, Text: text, Kind: kind})
}

func (n *Notifier) SendWelcome(ctx context.Context, to string) error {
	return n.send(ctx, KindWelcome, to, fmt.Sprintf("Welcome To %s", n.platform), templateData{})
}

func (n *Notifier) SendLocked(ctx context.Context, to string) error {
	return n.send(ctx, KindLocked, to, "Account Locked", templateData{})
}

func (n *Notifier) SendNewIP(ctx context.Context, to string, ip *models.IPRecord) error {
	return n.send(ctx, KindNewIP, to, subjectNewLogin, templateData{IP: ip})
}

func (n *Notifier) SendNewDevice(ctx context.Context, to string, device *models.DeviceRecord) error {
	return n.send(ctx, KindNewDevice, to, subjectNewLogin, templateData{Device: device})
}

func (n *Notifier) SendNewIPAndDevice(ctx context.Context, to string, device *models.DeviceRecord, ip *models.IPRecord) error {
	return n.send(ctx, KindNewIPAndDevice, to, subjectNewLogin, templateData{Device: device, IP: ip})
}

func (n *Notifier) SendForgotPassword(ctx context.Context, to, token string) error {
	return n.send(ctx, KindForgotPassword, to, "Forgot Password", templateData{
		Token:    token,
		ResetURL: n.ResetURL(token),
		TTL:      models.ResetTokenTTL.String(),
	})
}

// ResetURL is the page a reset email links to.
func (n *Notifier) ResetURL(token string) string {
	return fmt.Sprintf("http://%s/changepassword?token=%s", n.domain, url.QueryEscape(token))
}

package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

const (
	KindWelcome        = "welcome"
	KindLocked         = "locked"
	KindNewIP          = "new_ip"
	KindNewDevice      = "new_device"
	KindNewIPAndDevice = "new_ip_and_device"
	KindForgotPassword = "forgot_password"
)

var kinds = []string{KindWelcome, KindLocked, KindNewIP, KindNewDevice, KindNewIPAndDevice, KindForgotPassword}

// templateData is the union of fields the templates reference.
type templateData struct {
	Platform string
	To       string
	IP       any
	Device   any
	Token    string
	ResetURL string
	TTL      string
}

type renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func newRenderer() (*renderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}

	for _, kind := range kinds {
		if html.Lookup(kind+".html") == nil || text.Lookup(kind+".txt") == nil {
			return nil, fmt.Errorf("missing template for %s", kind)
		}
	}
	return &renderer{html: html, text: text}, nil
}

func (r *renderer) render(kind string, data templateData) (htmlBody, textBody string, err error) {
	var hb, tb bytes.Buffer
	if err := r.html.ExecuteTemplate(&hb, kind+".html", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := r.text.ExecuteTemplate(&tb, kind+".txt", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", kind, err)
	}
	return hb.String(), tb.String(), nil
}

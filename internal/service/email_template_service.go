package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

// EmailKind selects a notification template.
type EmailKind string

const (
	EmailStatusChanged    EmailKind = "status_changed"
	EmailOfferReceived    EmailKind = "offer_received"
	EmailOfferAccepted    EmailKind = "offer_accepted"
	EmailOfferRejected    EmailKind = "offer_rejected"
	EmailRequestMatch     EmailKind = "request_match"
	EmailOpportunityMatch EmailKind = "opportunity_match"
)

// EmailKinds lists every template, in a stable order.
var EmailKinds = []EmailKind{
	EmailStatusChanged,
	EmailOfferReceived,
	EmailOfferAccepted,
	EmailOfferRejected,
	EmailRequestMatch,
	EmailOpportunityMatch,
}

// EmailData is the view model handed to notification templates.
type EmailData struct {
	RecipientName string
	PortalURL     string
	Request       *models.Request
	Offer         *models.Offer
	Opportunity   *models.Opportunity
	FromStatus    models.RequestStatusCode
	ToStatus      models.RequestStatusCode
}

// RenderedEmail is a subject with HTML and plain text bodies.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

type emailTemplate struct {
	subject *texttemplate.Template
	html    *template.Template
	text    *texttemplate.Template
}

// EmailTemplateService renders notification emails. Free text authored by users
// is treated as Markdown and sanitised before it reaches the HTML body.
type EmailTemplateService struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	templates map[EmailKind]emailTemplate
}

// NewEmailTemplateService parses the built-in templates.
func NewEmailTemplateService() (*EmailTemplateService, error) {
	s := &EmailTemplateService{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy:    bluemonday.UGCPolicy(),
		templates: make(map[EmailKind]emailTemplate, len(emailSources)),
	}
	funcs := template.FuncMap{
		"markdown": s.markdown,
		"label":    func(c models.RequestStatusCode) string { return c.Label() },
	}
	textFuncs := texttemplate.FuncMap{
		"label": func(c models.RequestStatusCode) string { return c.Label() },
	}
	for kind, src := range emailSources {
		subject, err := texttemplate.New(string(kind) + ".subject").Funcs(textFuncs).Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, err)
		}
		htmlTpl, err := template.New(string(kind) + ".html").Funcs(funcs).Parse(htmlLayoutStart + src.html + htmlLayoutEnd)
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", kind, err)
		}
		textTpl, err := texttemplate.New(string(kind) + ".txt").Funcs(textFuncs).Parse(src.text + textFooter)
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", kind, err)
		}
		s.templates[kind] = emailTemplate{subject: subject, html: htmlTpl, text: textTpl}
	}
	return s, nil
}

// Render executes the template for kind.
func (s *EmailTemplateService) Render(kind EmailKind, data EmailData) (RenderedEmail, error) {
	tpl, ok := s.templates[kind]
	if !ok {
		return RenderedEmail{}, fmt.Errorf("unknown email template %q", kind)
	}
	if data.RecipientName == "" {
		data.RecipientName = "colleague"
	}
	data.PortalURL = strings.TrimRight(data.PortalURL, "/")

	var subject, htmlBody, textBody bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return RenderedEmail{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tpl.html.Execute(&htmlBody, data); err != nil {
		return RenderedEmail{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := tpl.text.Execute(&textBody, data); err != nil {
		return RenderedEmail{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	return RenderedEmail{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    htmlBody.String(),
		Text:    strings.TrimSpace(textBody.String()) + "\n",
	}, nil
}

func (s *EmailTemplateService) markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(s.policy.Sanitize(buf.String()))
}

type emailSource struct {
	subject string
	html    string
	text    string
}

const htmlLayoutStart = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2933">
<p>Dear {{.RecipientName}},</p>
`

const htmlLayoutEnd = `
<p style="color:#7b8794;font-size:12px">You receive this message because of your activity or notification preferences on the capacity development portal.</p>
</body></html>
`

const textFooter = `

You receive this message because of your activity or notification preferences on the capacity development portal.
`

var emailSources = map[EmailKind]emailSource{
	EmailStatusChanged: {
		subject: `Request "{{.Request.Title}}" is now {{label .ToStatus}}`,
		html: `<p>The request <strong>{{.Request.Title}}</strong> moved from {{label .FromStatus}} to <strong>{{label .ToStatus}}</strong>.</p>
<p><a href="{{.PortalURL}}/requests/{{.Request.ID}}">View the request</a></p>`,
		text: `Dear {{.RecipientName}},

The request "{{.Request.Title}}" moved from {{label .FromStatus}} to {{label .ToStatus}}.
{{.PortalURL}}/requests/{{.Request.ID}}`,
	},
	EmailOfferReceived: {
		subject: `New offer on "{{.Request.Title}}"`,
		html: `<p>A partner made an offer on <strong>{{.Request.Title}}</strong>.</p>
<div>{{markdown .Offer.Description}}</div>
<p><a href="{{.PortalURL}}/requests/{{.Request.ID}}/offers">Review the offer</a></p>`,
		text: `Dear {{.RecipientName}},

A partner made an offer on "{{.Request.Title}}".
{{.PortalURL}}/requests/{{.Request.ID}}/offers`,
	},
	EmailOfferAccepted: {
		subject: `Offer accepted for "{{.Request.Title}}"`,
		html: `<p>The offer on <strong>{{.Request.Title}}</strong> was accepted and the request is now matched.</p>
<p><a href="{{.PortalURL}}/requests/{{.Request.ID}}">Open the request</a></p>`,
		text: `Dear {{.RecipientName}},

The offer on "{{.Request.Title}}" was accepted and the request is now matched.
{{.PortalURL}}/requests/{{.Request.ID}}`,
	},
	EmailOfferRejected: {
		subject: `Offer declined for "{{.Request.Title}}"`,
		html: `<p>The offer on <strong>{{.Request.Title}}</strong> was declined by the request owner.</p>
<p><a href="{{.PortalURL}}/requests/{{.Request.ID}}">Open the request</a></p>`,
		text: `Dear {{.RecipientName}},

The offer on "{{.Request.Title}}" was declined by the request owner.
{{.PortalURL}}/requests/{{.Request.ID}}`,
	},
	EmailRequestMatch: {
		subject: `A request matches your interests: "{{.Request.Title}}"`,
		html: `<p>A capacity development request matching your notification preferences was submitted.</p>
<h3>{{.Request.Title}}</h3>
<div>{{markdown .Request.Detail.Identification.Description}}</div>
<p><a href="{{.PortalURL}}/requests/{{.Request.ID}}">View the request</a></p>`,
		text: `Dear {{.RecipientName}},

A capacity development request matching your notification preferences was submitted:
{{.Request.Title}}
{{.PortalURL}}/requests/{{.Request.ID}}`,
	},
	EmailOpportunityMatch: {
		subject: `New opportunity: "{{.Opportunity.Title}}"`,
		html: `<p>A {{.Opportunity.Type}} opportunity matching your notification preferences was published.</p>
<h3>{{.Opportunity.Title}}</h3>
<div>{{markdown .Opportunity.Summary}}</div>
{{if .Opportunity.ClosingDate}}<p>Applications close on {{.Opportunity.ClosingDate.Format "2 January 2006"}}.</p>{{end}}
<p><a href="{{.PortalURL}}/opportunities/{{.Opportunity.ID}}">View the opportunity</a></p>`,
		text: `Dear {{.RecipientName}},

A {{.Opportunity.Type}} opportunity matching your notification preferences was published:
{{.Opportunity.Title}}
{{if .Opportunity.ClosingDate}}Applications close on {{.Opportunity.ClosingDate.Format "2 January 2006"}}.
{{end}}{{.PortalURL}}/opportunities/{{.Opportunity.ID}}`,
	},
}

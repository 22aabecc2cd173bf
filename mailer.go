package users

import (
	"fmt"
	"strings"
	"text/template"

	goerrors "github.com/goliatone/go-errors"
)

const defaultActivationSubject = `Activate your account`

const defaultActivationBody = `Hello,

You're receiving this email because you registered an account with {{.Email}}.

Please visit the following link to confirm your email address and activate
your account:

{{.ActivationLink}}

This link expires in {{.ExpirationDays}} day(s). If you did not register,
please ignore this email.
`

// ActivationEmailData is the context both activation templates render with.
type ActivationEmailData struct {
	Email          string
	ActivationLink string
	ExpirationDays int
	Account        *Account
	Extra          map[string]any
}

// ActivationEmailBuilder renders the activation message handed to the
// Mailer. Hosts override the templates to match their product voice; the
// transport and delivery tracking stay with the Mailer implementation.
type ActivationEmailBuilder struct {
	cfg      Config
	subject  *template.Template
	body     *template.Template
	htmlBody *template.Template
}

// EmailBuilderOption customizes the builder.
type EmailBuilderOption func(*ActivationEmailBuilder) error

// WithSubjectTemplate replaces the subject template.
func WithSubjectTemplate(tmpl string) EmailBuilderOption {
	return func(b *ActivationEmailBuilder) error {
		t, err := template.New("subject").Parse(tmpl)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation subject template")
		}
		b.subject = t
		return nil
	}
}

// WithBodyTemplate replaces the plain text body template.
func WithBodyTemplate(tmpl string) EmailBuilderOption {
	return func(b *ActivationEmailBuilder) error {
		t, err := template.New("body").Parse(tmpl)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation body template")
		}
		b.body = t
		return nil
	}
}

// WithHTMLBodyTemplate adds an optional HTML alternative.
func WithHTMLBodyTemplate(tmpl string) EmailBuilderOption {
	return func(b *ActivationEmailBuilder) error {
		t, err := template.New("html_body").Parse(tmpl)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid activation html template")
		}
		b.htmlBody = t
		return nil
	}
}

// NewActivationEmailBuilder builds the default templates, applying overrides.
func NewActivationEmailBuilder(cfg Config, opts ...EmailBuilderOption) (*ActivationEmailBuilder, error) {
	b := &ActivationEmailBuilder{
		cfg:     cfg,
		subject: template.Must(template.New("subject").Parse(defaultActivationSubject)),
		body:    template.Must(template.New("body").Parse(defaultActivationBody)),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Build renders subject, body and the optional HTML body for the account and
// token. The subject is forced onto a single line; a multiline subject would
// break the message headers.
func (b *ActivationEmailBuilder) Build(account *Account, token string) (subject, body, htmlBody string, err error) {
	data := ActivationEmailData{
		Email:          account.Email,
		ActivationLink: fmt.Sprintf(b.cfg.ActivationURL, account.ID.String(), token),
		ExpirationDays: b.cfg.ActivationTimeoutDays,
		Account:        account,
		Extra:          b.cfg.ExtraEmailContext,
	}

	var sb strings.Builder
	if err = b.subject.Execute(&sb, data); err != nil {
		return "", "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation subject")
	}
	subject = strings.Join(strings.FieldsFunc(sb.String(), func(r rune) bool {
		return r == '\n' || r == '\r'
	}), "")

	var bb strings.Builder
	if err = b.body.Execute(&bb, data); err != nil {
		return "", "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation body")
	}
	body = bb.String()

	if b.htmlBody != nil {
		var hb strings.Builder
		if err = b.htmlBody.Execute(&hb, data); err != nil {
			return "", "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation html body")
		}
		htmlBody = hb.String()
	}

	return subject, body, htmlBody, nil
}

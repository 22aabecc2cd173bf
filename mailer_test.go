package users_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	users "github.com/goliatone/go-users"
)

func TestEmailBuilderDefaults(t *testing.T) {
	cfg := verifyingConfig()
	builder, err := users.NewActivationEmailBuilder(cfg)
	require.NoError(t, err)

	account := pendingAccount()
	token := "abc-0123456789abcdef0123456789abcdef"

	subject, body, htmlBody, err := builder.Build(account, token)
	require.NoError(t, err)

	assert.Equal(t, "Activate your account", subject)
	assert.Empty(t, htmlBody, "no HTML alternative unless configured")

	link := fmt.Sprintf("https://example.com/activate/%s/%s", account.ID.String(), token)
	assert.Contains(t, body, link)
	assert.Contains(t, body, account.Email)
	assert.Contains(t, body, fmt.Sprintf("%d day(s)", cfg.ActivationTimeoutDays))
}

func TestEmailBuilderSubjectForcedSingleLine(t *testing.T) {
	cfg := verifyingConfig()
	builder, err := users.NewActivationEmailBuilder(cfg,
		users.WithSubjectTemplate("Activate\nyour\r\naccount today"))
	require.NoError(t, err)

	subject, _, _, err := builder.Build(pendingAccount(), "abc-def")
	require.NoError(t, err)

	assert.Equal(t, "Activateyouraccount today", subject)
	assert.NotContains(t, subject, "\n")
}

func TestEmailBuilderCustomTemplates(t *testing.T) {
	cfg := verifyingConfig()
	cfg.ExtraEmailContext = map[string]any{"site_name": "ExampleCorp"}

	builder, err := users.NewActivationEmailBuilder(cfg,
		users.WithSubjectTemplate("Welcome to {{.Extra.site_name}}"),
		users.WithBodyTemplate("Hi {{.Account.FirstName}}, visit {{.ActivationLink}}"),
		users.WithHTMLBodyTemplate("<a href=\"{{.ActivationLink}}\">Activate</a>"),
	)
	require.NoError(t, err)

	account := &users.Account{
		ID:        uuid.New(),
		Email:     "jane@example.com",
		FirstName: "Jane",
		Status:    users.AccountStatusPending,
	}

	subject, body, htmlBody, err := builder.Build(account, "tok-en")
	require.NoError(t, err)

	assert.Equal(t, "Welcome to ExampleCorp", subject)
	assert.Contains(t, body, "Hi Jane, visit https://example.com/activate/")
	assert.Contains(t, htmlBody, "<a href=")
}

func TestEmailBuilderBadTemplate(t *testing.T) {
	_, err := users.NewActivationEmailBuilder(verifyingConfig(),
		users.WithBodyTemplate("{{.Unclosed"))
	assert.Error(t, err)
}

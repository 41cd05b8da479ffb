package email_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsystem/notify/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Welcome",
		BodyHTML: "<p>Hello</p>",
	}

	tests := []struct {
		name    string
		mutate  func(p *email.SendEmailParams)
		wantErr bool
	}{
		{name: "valid params", mutate: func(p *email.SendEmailParams) {}, wantErr: false},
		{name: "missing recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = "" }, wantErr: true},
		{name: "malformed recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = "not-an-email" }, wantErr: true},
		{name: "missing subject", mutate: func(p *email.SendEmailParams) { p.Subject = "" }, wantErr: true},
		{name: "missing body", mutate: func(p *email.SendEmailParams) { p.BodyHTML = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkClient_ConfigValidation(t *testing.T) {
	t.Parallel()

	cfg := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@example.com",
	}

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		client, err := email.NewPostmarkClient(cfg)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("missing server token", func(t *testing.T) {
		t.Parallel()

		bad := cfg
		bad.PostmarkServerToken = ""
		_, err := email.NewPostmarkClient(bad)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("invalid sender email", func(t *testing.T) {
		t.Parallel()

		bad := cfg
		bad.SenderEmail = "nope"
		_, err := email.NewPostmarkClient(bad)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestNewSMTPClient_ConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing host", func(t *testing.T) {
		t.Parallel()

		_, err := email.NewSMTPClient(email.Config{SenderEmail: "noreply@example.com"})
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		client, err := email.NewSMTPClient(email.Config{
			SMTPHost:    "localhost",
			SMTPPort:    1025,
			SenderEmail: "noreply@example.com",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Grade Published",
		BodyHTML: "<p>Your grade is available.</p>",
		Tag:      "grade_update",
	})
	require.NoError(t, err)

	htmlFiles, err := filepath.Glob(filepath.Join(dir, "*.html"))
	require.NoError(t, err)
	require.Len(t, htmlFiles, 1)

	body, err := os.ReadFile(htmlFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "Your grade is available.")

	jsonFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	require.Len(t, jsonFiles, 1)
	assert.Contains(t, filepath.Base(jsonFiles[0]), "grade_update")
}

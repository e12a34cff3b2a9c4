package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/bazaarly/bazaarly-backend/pkg/config"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

// Mailer delivers the transactional mails carrying single-use token links.
// Implementations must not block the calling request path on retries.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, fullName, link string) error
	SendPasswordResetEmail(ctx context.Context, to, fullName, link string) error
	SendAccountDeletionEmail(ctx context.Context, to, fullName, link string) error
}

// New returns an SMTP-backed mailer when SMTP is configured, otherwise a
// logging stub so development environments work without a mail relay.
func New(cfg config.SMTPConfig, logg *logger.Logger) (Mailer, error) {
	if !cfg.Enabled() {
		return &logMailer{logg: logg}, nil
	}

	client, err := gomail.NewClient(
		cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("building smtp client: %w", err)
	}

	return &smtpMailer{client: client, from: cfg.From, logg: logg}, nil
}

type smtpMailer struct {
	client *gomail.Client
	from   string
	logg   *logger.Logger
}

func (m *smtpMailer) SendVerificationEmail(ctx context.Context, to, fullName, link string) error {
	return m.send(ctx, to, "Verify your email", verificationBody(fullName, link))
}

func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, to, fullName, link string) error {
	return m.send(ctx, to, "Reset your password", passwordResetBody(fullName, link))
}

func (m *smtpMailer) SendAccountDeletionEmail(ctx context.Context, to, fullName, link string) error {
	return m.send(ctx, to, "Confirm account deletion", accountDeletionBody(fullName, link))
}

func (m *smtpMailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// logMailer records what would have been sent. Used when SMTP is not
// configured so token flows remain exercisable locally.
type logMailer struct {
	logg *logger.Logger
}

func (m *logMailer) SendVerificationEmail(ctx context.Context, to, fullName, link string) error {
	return m.log(ctx, "verification", to, link)
}

func (m *logMailer) SendPasswordResetEmail(ctx context.Context, to, fullName, link string) error {
	return m.log(ctx, "password_reset", to, link)
}

func (m *logMailer) SendAccountDeletionEmail(ctx context.Context, to, fullName, link string) error {
	return m.log(ctx, "account_deletion", to, link)
}

func (m *logMailer) log(ctx context.Context, kind, to, link string) error {
	if m.logg != nil {
		ctx = m.logg.WithFields(ctx, map[string]any{
			"mail_kind": kind,
			"to":        to,
			"link":      link,
		})
		m.logg.Info(ctx, "smtp disabled, mail logged instead of sent")
	}
	return nil
}

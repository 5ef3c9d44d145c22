package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	mail "github.com/wneessen/go-mail"
)

// Message is a rendered HTML email ready for delivery.
type Message struct {
	From    string
	To      []string
	Bcc     []string
	Subject string
	HTML    string
}

// Mailer delivers rendered messages. Delivery is synchronous; failures
// propagate to the caller unmodified.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer. Credentials may be empty for
// relays without authentication.
func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	out := mail.NewMsg()

	if err := out.From(msg.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid sender address")
	}
	if err := out.To(msg.To...); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid recipient address")
	}
	if len(msg.Bcc) > 0 {
		if err := out.Bcc(msg.Bcc...); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid bcc address")
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{mail.WithPort(m.port)}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create SMTP client")
	}

	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver email")
	}

	return nil
}

// LogMailer writes messages to the logger instead of delivering them.
// Useful for development environments.
type LogMailer struct {
	Logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	logger := m.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	logger.Info("from: %s", msg.From)
	logger.Info("to: %v bcc: %v", msg.To, msg.Bcc)
	logger.Info("subject: %s", msg.Subject)
	logger.Debug("%s", msg.HTML)

	return nil
}

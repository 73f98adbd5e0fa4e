package email

import (
	"context"

	mail "github.com/wneessen/go-mail"
)

const fromDisplayName = "Portfolio Chat System"

// SMTPSender delivers notification emails over SMTP.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(host string, port int, username, password string) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}

	return &SMTPSender{client: client, from: username}, nil
}

// Verify dials the server once so a broken SMTP configuration surfaces at
// startup instead of on the first notification.
func (s *SMTPSender) Verify(ctx context.Context) error {
	if err := s.client.DialWithContext(ctx); err != nil {
		return err
	}
	return s.client.Close()
}

func (s *SMTPSender) Send(ctx context.Context, out Outbound) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromDisplayName, s.from); err != nil {
		return err
	}
	if err := msg.To(out.To); err != nil {
		return err
	}
	if out.ReplyTo != "" {
		if err := msg.ReplyTo(out.ReplyTo); err != nil {
			return err
		}
	}
	msg.Subject(out.Subject)
	msg.SetBodyString(mail.TypeTextPlain, out.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, out.HTML)

	return s.client.DialAndSendWithContext(ctx, msg)
}

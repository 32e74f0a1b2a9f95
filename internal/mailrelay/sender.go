package mailrelay

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Message is one outgoing email. At least one of HTML and Text is set.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	// Send delivers the message and returns its Message-ID.
	Send(ctx context.Context, msg Message) (string, error)
}

type smtpSender struct {
	cfg  SMTPConfig
	opts []mail.Option
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	opts := []mail.Option{mail.WithPort(cfg.Port)}

	switch cfg.TLS {
	case "mandatory":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	return &smtpSender{cfg: cfg, opts: opts}
}

func (s *smtpSender) Send(ctx context.Context, msg Message) (string, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return "", fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	// A client per message; the relay holds no connection state between requests.
	client, err := mail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}

	return m.GetMessageID(), nil
}

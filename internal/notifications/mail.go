package notifications

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"time"

	"auction_watch/internal/retry"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// sendFunc runs one SMTP session. It must return once ctx is done.
type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, msg *email.Email) error

// SMTPMailer delivers plain-text mail, retrying failures that happen before
// the server could have accepted the message.
type SMTPMailer struct {
	cfg   SMTPConfig
	retry retry.Config
	send  sendFunc
}

func NewSMTPMailer(cfg SMTPConfig, retryConfig retry.Config) *SMTPMailer {
	retryConfig.Retryable = IsRetryable
	return &SMTPMailer{
		cfg:   cfg,
		retry: retryConfig,
		send:  sendSMTP,
	}
}

// Send delivers one message to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.cfg.Enabled() {
		return &SendError{Type: "disabled", Underlying: fmt.Errorf("smtp is not configured")}
	}

	msg := email.NewEmail()
	msg.From = m.cfg.From
	msg.To = []string{to}
	msg.Subject = subject
	msg.Text = []byte(body)

	_, err := retry.WithRetry(ctx, m.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.sendOnce(ctx, msg)
	})
	if err != nil {
		return err
	}

	log.Debug().Str("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}

// sendOnce runs the session in the caller's goroutine so an attempt is never
// still in flight when the next one starts.
func (m *SMTPMailer) sendOnce(ctx context.Context, msg *email.Email) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(ctx, addr, auth, msg); err != nil {
		return classifySMTP(err)
	}
	return nil
}

// sendSMTP is the session email.Email.Send runs, with every network step
// bound to ctx through the connection deadline.
func sendSMTP(ctx context.Context, addr string, auth smtp.Auth, msg *email.Email) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return &SendError{Type: "client", Underlying: err}
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return &SendError{Type: "client", Underlying: fmt.Errorf("invalid sender: %w", err)}
	}
	raw, err := msg.Bytes()
	if err != nil {
		return &SendError{Type: "client", Underlying: err}
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if auth != nil {
		// relays without AUTH take mail unauthenticated
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		} else {
			log.Debug().Str("host", host).Msg("SMTP server does not offer AUTH; sending unauthenticated")
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		to, err := mail.ParseAddress(rcpt)
		if err != nil {
			return &SendError{Type: "client", Underlying: fmt.Errorf("invalid recipient: %w", err)}
		}
		if err := c.Rcpt(to.Address); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return afterData(err)
	}
	if err := w.Close(); err != nil {
		return afterData(err)
	}
	// the message is accepted once DATA is acknowledged
	if err := c.Quit(); err != nil {
		log.Debug().Err(err).Msg("SMTP QUIT failed after delivery")
	}
	return nil
}

// afterData marks transport failures once the message body is on the wire.
// The server may already have queued it, so resending could duplicate it.
func afterData(err error) error {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return err
	}
	return &SendError{Type: "ambiguous", Underlying: err}
}

// Package mailer sends rendered campaign steps as test emails over SMTP
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// TLS modes
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
)

// ErrDisabled is returned when no SMTP relay is configured
var ErrDisabled = errors.New("test email sending is not configured")

// Options configures the SMTP relay used for test sends
type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLS                string
	InsecureSkipVerify bool
	From               string
	FromName           string
	Hostname           string
	Timeout            time.Duration
	DKIM               *Signer
}

// DeliveryError represents a delivery error with type information
type DeliveryError struct {
	Temporary bool
	Stage     string
	Message   string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// Mailer delivers test emails through one relay
type Mailer struct {
	opts   Options
	from   mail.Address
	logger *slog.Logger
	now    func() time.Time
}

// New creates a mailer. A mailer without a host is disabled.
func New(opts Options, logger *slog.Logger) *Mailer {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.TLS == "" {
		opts.TLS = TLSStartTLS
	}
	if opts.Hostname == "" {
		opts.Hostname = "localhost"
	}
	return &Mailer{
		opts:   opts,
		from:   mail.Address{Name: opts.FromName, Address: opts.From},
		logger: logger.With("component", "mailer"),
		now:    time.Now,
	}
}

// Enabled reports whether a relay is configured
func (m *Mailer) Enabled() bool {
	return m != nil && m.opts.Host != ""
}

// Send delivers msg and returns its Message-ID
func (m *Mailer) Send(ctx context.Context, msg Message) (string, error) {
	if !m.Enabled() {
		return "", ErrDisabled
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return "", &DeliveryError{Stage: "rcpt", Message: fmt.Sprintf("invalid recipient %q", msg.To)}
	}

	data, messageID := build(m.from, msg, m.now())

	if m.opts.DKIM != nil {
		signed, err := m.opts.DKIM.Sign(data)
		if err != nil {
			m.logger.Warn("DKIM signing failed, sending unsigned", "error", err)
		} else {
			data = signed
		}
	}

	if err := m.deliver(ctx, msg.To, data); err != nil {
		m.logger.Warn("test email delivery failed", "to", msg.To, "error", err)
		return "", err
	}

	m.logger.Info("test email sent", "to", msg.To, "message_id", messageID)
	return messageID, nil
}

func (m *Mailer) deliver(ctx context.Context, to string, data []byte) error {
	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))

	dialer := &net.Dialer{
		Timeout: m.opts.Timeout,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{
			Temporary: true,
			Stage:     "connect",
			Message:   fmt.Sprintf("connection failed to %s: %v", addr, err),
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(m.opts.Timeout)
	}
	conn.SetDeadline(deadline)

	tlsConfig := &tls.Config{
		ServerName:         m.opts.Host,
		InsecureSkipVerify: m.opts.InsecureSkipVerify,
	}

	var client *smtp.Client
	switch m.opts.TLS {
	case TLSImplicit:
		client = smtp.NewClient(tls.Client(conn, tlsConfig))
	case TLSStartTLS:
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return categorizeError(err, "starttls")
		}
	default:
		client = smtp.NewClient(conn)
	}
	defer client.Close()

	if err := client.Hello(m.opts.Hostname); err != nil {
		return categorizeError(err, "helo")
	}

	if m.opts.Username != "" {
		auth := sasl.NewPlainClient("", m.opts.Username, m.opts.Password)
		if err := client.Auth(auth); err != nil {
			return categorizeError(err, "auth")
		}
	}

	if err := client.SendMail(m.opts.From, []string{to}, bytes.NewReader(data)); err != nil {
		return categorizeError(err, "send")
	}

	return client.Quit()
}

// categorizeError determines if an error is temporary or permanent
func categorizeError(err error, stage string) *DeliveryError {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &DeliveryError{
			Temporary: smtpErr.Code >= 400 && smtpErr.Code < 500,
			Stage:     stage,
			Message:   fmt.Sprintf("%s failed: %d %s", stage, smtpErr.Code, smtpErr.Message),
		}
	}

	return &DeliveryError{
		Temporary: true,
		Stage:     stage,
		Message:   fmt.Sprintf("%s failed: %v", stage, err),
	}
}

// IsTemporaryError checks if the error is temporary
func IsTemporaryError(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Temporary
	}
	return false
}

package mailer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Options struct {
	Provider string
	Host     string
	Port     int
	Secure   bool
	Username string
	Password string
	FromName string
}

// New picks the transport for the configured provider. Without credentials,
// or with provider "log", messages are only written to the log.
func New(opts Options) (Mailer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = "gmail"
	}
	if provider == "log" || opts.Username == "" || opts.Password == "" {
		return NewLogMailer(), nil
	}

	switch provider {
	case "gmail":
		opts.Host, opts.Port, opts.Secure = "smtp.gmail.com", 587, false
	case "outlook":
		opts.Host, opts.Port, opts.Secure = "smtp.office365.com", 587, false
	default:
		if opts.Host == "" {
			return nil, fmt.Errorf("mail provider %q requires MAIL_HOST", provider)
		}
		if opts.Port == 0 {
			opts.Port = 587
		}
	}

	return newSMTPMailer(opts)
}

type smtpMailer struct {
	client *mail.Client
	from   string
	name   string
	mu     sync.Mutex
}

func newSMTPMailer(opts Options) (*smtpMailer, error) {
	clientOpts := []mail.Option{
		mail.WithPort(opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(opts.Username),
		mail.WithPassword(opts.Password),
		mail.WithTimeout(15 * time.Second),
	}
	if opts.Secure {
		clientOpts = append(clientOpts, mail.WithSSL())
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(opts.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	name := opts.FromName
	if name == "" {
		name = "Cluverse"
	}

	return &smtpMailer{client: client, from: opts.Username, name: name}, nil
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.name, m.from); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	// mail.Client keeps one connection; serialize dial+send.
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

type logMailer struct{}

func NewLogMailer() Mailer {
	return logMailer{}
}

func (logMailer) Send(_ context.Context, to, subject, body string) error {
	log.Printf("[DEV] Would send mail to %s: %s\n%s", to, subject, body)
	return nil
}

// Dispatch sends in the background and bounds the attempt with timeout.
// Failures are logged, never returned: the caller already succeeded.
func Dispatch(m Mailer, timeout time.Duration, to, subject, body string) {
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := m.Send(ctx, to, subject, body); err != nil {
			log.Printf("❌ Mailer error for %s: %v", to, err)
		}
	}()
}

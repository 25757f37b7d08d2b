// Package mail sends account emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"crowdfund/models"

	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultTimeout bounds dialing and every read or write on the relay.
const DefaultTimeout = 10 * time.Second

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers mail through a single SMTP relay. Authentication is
// skipped when no username is configured, as with a local MailHog.
type SMTPSender struct {
	client  *gomail.Client
	from    string
	timeout time.Duration
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", cfg.Port, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, timeout: timeout}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.newMsg(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// newMsg builds the MIME message, including Date and Message-ID headers and
// an encoded Subject.
func (s *SMTPSender) newMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", s.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}

const activationSubject = "Activate Your Account"

var activationTemplate = template.Must(template.New("activation").Parse(`<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>Thanks for signing up. Please confirm your email address to activate your account:</p>
  <p><a href="{{.Link}}">{{.Link}}</a></p>
  <p>This link expires in {{.ExpiresIn}}.</p>
</body>
</html>
`))

// ActivationLink returns the absolute URL that activates an account.
func ActivationLink(baseURL string, token *models.ActivationToken) string {
	return strings.TrimRight(baseURL, "/") + "/activate/" + token.Token.String() + "/"
}

// ActivationMessage renders the activation email for user.
func ActivationMessage(user *models.User, link, expiresIn string) (Message, error) {
	var buf bytes.Buffer
	err := activationTemplate.Execute(&buf, map[string]interface{}{
		"Name":      user.DisplayName(),
		"Link":      link,
		"ExpiresIn": expiresIn,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: user.Email, Subject: activationSubject, HTML: buf.String()}, nil
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailConfig configures the SMTP notifier.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier sends one plain-text mail per new listing.
type EmailNotifier struct {
	cfg    EmailConfig
	dialer mailSender
}

func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, errors.New("email: SMTP host, port and sender must be configured")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("email: no recipients configured")
	}
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

func (n *EmailNotifier) Notify(_ context.Context, ref string) error {
	if err := n.dialer.DialAndSend(n.message(ref)); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func (n *EmailNotifier) message(ref string) *gomail.Message {
	link := ref
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://" + link
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To...)
	m.SetHeader("Subject", "New listing: "+ref)
	m.SetBody("text/plain", "A new listing matched your search:\n\n"+link+"\n")
	return m
}

package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"batchdl/internal/config"
)

const userAgent = "batchdl/0.1.0"

// Service defines the notification surface used by the pipeline.
type Service interface {
	NotifyDownloadReady(ctx context.Context, recipient Recipient, url string) error
	NotifyPipelineError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// ErrMailDisabled is returned when download email is requested without an
// SMTP transport.
var ErrMailDisabled = errors.New("smtp delivery not configured")

// ErrAlertsDisabled is returned by TestNotification when no ntfy topic is
// configured.
var ErrAlertsDisabled = errors.New("ntfy topic not configured")

// Option customizes the service.
type Option func(*service)

// WithSender replaces the SMTP transport.
func WithSender(sender Sender) Option {
	return func(s *service) {
		s.sender = sender
	}
}

// WithHTTPClient replaces the client used for ntfy alerts.
func WithHTTPClient(client *http.Client) Option {
	return func(s *service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithClock overrides the time source used for message dates.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the notifier described by cfg. Without an SMTP host and
// ntfy topic, a noop implementation is returned.
func NewService(cfg *config.Config, opts ...Option) Service {
	n := cfg.Notifications
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tag, err := language.Parse(n.Language)
	if err != nil {
		tag = language.English
	}

	s := &service{
		serviceName:   n.ServiceName,
		fromAddress:   n.FromAddress,
		fromName:      n.FromName,
		retentionDays: cfg.Download.RetentionDays,
		lang:          tag,
		topic:         strings.TrimSpace(n.NtfyTopic),
		client:        &http.Client{Timeout: timeout},
		now:           time.Now,
	}
	if strings.TrimSpace(n.SMTPHost) != "" {
		s.sender = &SMTPSender{
			Host:     n.SMTPHost,
			Port:     n.SMTPPort,
			Username: n.SMTPUsername,
			Password: n.SMTPPassword,
			TLS:      n.SMTPTLS,
			Timeout:  timeout,
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil && s.topic == "" {
		return noopService{}
	}

	perMinute := n.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return s
}

type service struct {
	serviceName   string
	fromAddress   string
	fromName      string
	retentionDays int
	lang          language.Tag

	sender  Sender
	limiter *rate.Limiter

	topic  string
	client *http.Client

	now func() time.Time
}

func (s *service) NotifyDownloadReady(ctx context.Context, recipient Recipient, url string) error {
	if s.sender == nil {
		return ErrMailDisabled
	}
	if strings.TrimSpace(recipient.Address) == "" {
		return errors.New("recipient address is empty")
	}
	msg, err := ComposeDownloadReady(DownloadReady{
		ServiceName:   s.serviceName,
		FromAddress:   s.fromAddress,
		FromName:      s.fromName,
		Recipient:     recipient,
		URL:           url,
		RetentionDays: s.retentionDays,
		Language:      s.lang,
		Date:          s.now(),
	})
	if err != nil {
		return err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	if err := s.sender.Send(ctx, s.fromAddress, []string{recipient.Address}, msg); err != nil {
		return fmt.Errorf("send download email to %s: %w", recipient.Address, err)
	}
	return nil
}

func (s *service) NotifyPipelineError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return s.publish(ctx, alert{
		title:    s.serviceName + " batch download - Error",
		message:  builder.String(),
		tags:     []string{"batchdl", "error", "alert"},
		priority: "high",
	})
}

func (s *service) TestNotification(ctx context.Context) error {
	if s.topic == "" {
		return ErrAlertsDisabled
	}
	return s.publish(ctx, alert{
		title:    s.serviceName + " batch download - Test",
		message:  "Notification system test",
		tags:     []string{"batchdl", "test"},
		priority: "low",
	})
}

type noopService struct{}

func (noopService) NotifyDownloadReady(context.Context, Recipient, string) error { return ErrMailDisabled }
func (noopService) NotifyPipelineError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                      { return ErrAlertsDisabled }

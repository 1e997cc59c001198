package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"heyu/internal/config"
	"heyu/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const brand = "HeyU 禾屿"

// ErrNotConfigured is returned when SMTP host, user or password is missing.
var ErrNotConfigured = errors.New("email service not configured")

// Result is the outcome of one send attempt, shaped for the JSON API.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Mailer delivers a rendered message. net/smtp.SendMail satisfies it.
type Mailer func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender sends booking emails over SMTP.
type EmailSender struct {
	cfg    config.SMTPConfig
	mail   Mailer
	logger *zerolog.Logger
	now    func() time.Time
}

func NewEmailSender(cfg config.SMTPConfig, logger *zerolog.Logger) *EmailSender {
	s := &EmailSender{cfg: cfg, logger: logger, now: time.Now}
	if cfg.Secure {
		s.mail = sendMailTLS
	} else {
		s.mail = smtp.SendMail
	}
	return s
}

// WithMailer replaces the delivery function. Used by tests.
func (s *EmailSender) WithMailer(m Mailer) *EmailSender {
	s.mail = m
	return s
}

func (s *EmailSender) Configured() bool {
	return s != nil && s.cfg.Configured()
}

// Status describes the SMTP configuration without exposing secrets.
type Status struct {
	Configured bool              `json:"configured"`
	Config     map[string]string `json:"config"`
}

func (s *EmailSender) Status() Status {
	set := func(v, hidden string) string {
		if v == "" {
			return "NOT SET"
		}
		if hidden != "" {
			return hidden
		}
		return "SET"
	}
	port := strconv.Itoa(s.cfg.Port)
	if s.cfg.Port == 0 {
		port = "587"
	}
	from := s.cfg.From
	if from == "" {
		from = set(s.cfg.User, s.cfg.User)
	}
	return Status{
		Configured: s.Configured(),
		Config: map[string]string{
			"SMTP_HOST":   set(s.cfg.Host, ""),
			"SMTP_PORT":   port,
			"SMTP_SECURE": strconv.FormatBool(s.cfg.Secure),
			"SMTP_USER":   set(s.cfg.User, ""),
			"SMTP_PASS":   set(s.cfg.Password, "SET (hidden)"),
			"SMTP_FROM":   from,
		},
	}
}

func (s *EmailSender) fromHeader() string {
	from := s.cfg.From
	if from == "" {
		from = s.cfg.User
	}
	return (&mail.Address{Name: brand, Address: from}).String()
}

func (s *EmailSender) envelopeFrom() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.User
}

// SendConfirmation renders and sends the booking confirmation email.
func (s *EmailSender) SendConfirmation(ctx context.Context, b models.Booking) (Result, error) {
	subject := fmt.Sprintf("%s - Booking Confirmation #%s", brand, b.BookingID)
	return s.sendBooking(ctx, b, subject, confirmationTmpl)
}

// SendReminder sends the day-before reminder for a booking.
func (s *EmailSender) SendReminder(ctx context.Context, b models.Booking) (Result, error) {
	subject := fmt.Sprintf("%s - Appointment Reminder #%s", brand, b.BookingID)
	return s.sendBooking(ctx, b, subject, reminderTmpl)
}

func (s *EmailSender) sendBooking(ctx context.Context, b models.Booking, subject string, tmpl *template.Template) (Result, error) {
	if !s.Configured() {
		return Result{Success: false, Message: "Email service not configured"}, ErrNotConfigured
	}
	if strings.TrimSpace(b.Email) == "" {
		return Result{Success: false, Message: "Booking has no email address"}, errors.New("booking has no email address")
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, newEmailView(b)); err != nil {
		return Result{Success: false, Error: err.Error()}, fmt.Errorf("render email: %w", err)
	}

	id, err := s.Send(ctx, b.Email, subject, body.String())
	if err != nil {
		return Result{Success: false, Error: err.Error()}, err
	}
	return Result{Success: true, MessageID: id, Message: "Email sent successfully"}, nil
}

// Send delivers an HTML message and returns its Message-ID.
func (s *EmailSender) Send(ctx context.Context, to, subject, html string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.cfg.Host)
	msg := buildMessage(s.fromHeader(), to, subject, messageID, s.now(), html)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)

	if err := s.mail(addr, auth, s.envelopeFrom(), []string{to}, msg); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", to, err)
	}

	if s.logger != nil {
		s.logger.Info().Str("to", to).Str("message_id", messageID).Msg("Email sent")
	}
	return messageID, nil
}

func buildMessage(from, to, subject, messageID string, date time.Time, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// sendMailTLS is smtp.SendMail over an implicit TLS connection (port 465).
func sendMailTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if a != nil {
		if err = c.Auth(a); err != nil {
			return err
		}
	}
	if err = c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err = c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// TestBooking is the sample booking mailed by the SMTP self-test.
func TestBooking(email string, now time.Time) models.Booking {
	return models.Booking{
		BookingID:    fmt.Sprintf("TEST-%d", now.UnixMilli()),
		Email:        email,
		Name:         "Test User",
		WechatName:   "Test WeChat",
		Phone:        "1234567890",
		SelectedDate: now.Format(models.DateLayout),
		SelectedTime: "10:00",
		Service: models.Service{
			NameCn:   "测试服务",
			NameEn:   "Test Service",
			Duration: "2 hours",
			Price:    "$50",
		},
	}
}

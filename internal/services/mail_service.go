package services

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/elod87/service-book-2/internal/config"
	"github.com/elod87/service-book-2/internal/models"
)

// MailService sends transactional mail for the account lifecycle.
// Every notification is fire-and-forget: delivery runs in its own
// goroutine and failures are logged, never propagated to the request
// that triggered them.
type MailService struct {
	cfg *config.Config
	log *zap.Logger
}

// NewMailService constructs a MailService.
func NewMailService(cfg *config.Config, log *zap.Logger) *MailService {
	return &MailService{cfg: cfg, log: log}
}

// SendMailValidation asks a new user to confirm their address.
func (s *MailService) SendMailValidation(user models.User, activationToken string) {
	link := fmt.Sprintf("%s/users/validate/%s/%s", s.cfg.EndpointURL, user.ID, activationToken)
	body := fmt.Sprintf(`<div>Hi %s, validate your email by clicking the link below</div>
<a href="%s" target="_blank">Click here</a>`, user.Name, link)

	s.dispatch(user.Email, "Service Book registration - validate email", body)
}

// SendForApproval notifies the admin address that a new user is
// waiting for approval, with approve/deny links.
func (s *MailService) SendForApproval(user models.User, approvalToken string) {
	fromGoogle := "NO"
	if user.GoogleID != "" {
		fromGoogle = "YES"
	}
	body := fmt.Sprintf(`<div>New user login</div>
<p>Name: %s</p>
<p>Mail: %s</p>
<p>Is from google: %s</p>
<a href="%s/users/approve/%s/%s/1" target="_blank">Approve</a>
<a href="%s/users/approve/%s/%s/0" target="_blank">Deny</a>`,
		user.Name, user.Email, fromGoogle,
		s.cfg.EndpointURL, user.ID, approvalToken,
		s.cfg.EndpointURL, user.ID, approvalToken)

	s.dispatch(s.cfg.AdminMail, "Service Book new user - approval", body)
}

// SendApprovalResult tells the user whether their registration was
// approved or their account suspended.
func (s *MailService) SendApprovalResult(user models.User, approved bool) {
	if approved {
		body := fmt.Sprintf("<div>Hi %s, your Service Book registration was approved, log in to your account</div>", user.Name)
		s.dispatch(user.Email, "Service Book registration approved", body)
		return
	}
	body := fmt.Sprintf("<div>Hi %s, your Service Book account was suspended</div>", user.Name)
	s.dispatch(user.Email, "Service Book account suspended", body)
}

// SendPasswordReset mails the reset link for a forgot-password
// request.
func (s *MailService) SendPasswordReset(user models.User, resetToken string) {
	link := fmt.Sprintf("%s/reset-password/%s/%s", s.cfg.ClientURL, user.ID, resetToken)
	body := fmt.Sprintf(`<div>Hi %s, you can reset your password accessing the following link:</div>
<a href="%s" target="_blank">Reset password</a>`, user.Name, link)

	s.dispatch(user.Email, "Service Book reset password", body)
}

func (s *MailService) dispatch(to, subject, bodyHTML string) {
	if s.cfg.SMTPHost == "" {
		s.log.Debug("mail transport not configured, skipping", zap.String("subject", subject))
		return
	}
	if to == "" {
		s.log.Warn("mail skipped: empty recipient", zap.String("subject", subject))
		return
	}

	go func() {
		if err := s.send(to, subject, bodyHTML); err != nil {
			s.log.Error("mail delivery failed",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}

func (s *MailService) send(to, subject, bodyHTML string) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fmt.Errorf("smtp server does not support STARTTLS")
	}
	tlsConfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("start tls: %w", err)
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPUser); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.SMTPUser, to, subject, bodyHTML)
	if _, err := writer.Write([]byte(message)); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return client.Quit()
}

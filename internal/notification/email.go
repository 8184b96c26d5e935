package notification

import (
	"fmt"
	"net/smtp"
)

// Mailer dispatches account lifecycle emails. The account service only ever
// attempts a dispatch; delivery is never awaited beyond the send itself.
type Mailer interface {
	SendVerificationEmail(to, name, verifyURL string) error
	SendPasswordResetEmail(to, resetURL string) error
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService sends mail over SMTP.
type EmailService struct {
	config EmailConfig
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

func (s *EmailService) SendVerificationEmail(to, name, verifyURL string) error {
	subject := "Verify Your Email - Elegant Mart"
	body := fmt.Sprintf(`<html><body>
		<h2>Welcome to Elegant Mart!</h2>
		<p>Hi %s,</p>
		<p>Thank you for signing up. To complete your registration and start shopping,
		please verify your email address:</p>
		<p><a href="%s">Verify Email Address</a></p>
		<p>If the link doesn't work, copy and paste this URL into your browser:<br>%s</p>
		<p>If you didn't create an account with Elegant Mart, please ignore this email.</p>
	</body></html>`, name, verifyURL, verifyURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) SendPasswordResetEmail(to, resetURL string) error {
	subject := "Password Reset Request - Elegant Mart"
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>You requested a password reset for your Elegant Mart account.</p>
		<p><a href="%s">Click here to reset your password</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 15 minutes.</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, resetURL, resetURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}

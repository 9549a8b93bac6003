// Package sender реализует сервис отправки писем сброса пароля.
// Сообщения приходят из очереди RabbitMQ и отправляются по SMTP.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/smtp"
	"github.com/magabrotheeeer/scorecard-backend/internal/notifier"
)

// SenderService отправляет письма сброса пароля.
type SenderService struct {
	transport smtp.TransportInterface
	appURL    string
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, appURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		appURL:    appURL,
		log:       log,
	}
}

// SendPasswordResetEmail обрабатывает сообщение из очереди: строит ссылку
// со свежим токеном и отправляет письмо. Токен действует один час и
// одноразово, поэтому повторная доставка сообщения безопасна.
func (s *SenderService) SendPasswordResetEmail(body []byte) error {
	var message notifier.ResetEmail
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password.html?token=%s", s.appURL, message.Token)
	subject := "Восстановление пароля"
	bodyText := fmt.Sprintf(`Здравствуйте, %s!

Мы получили запрос на сброс пароля вашей учётной записи.
Чтобы задать новый пароль, перейдите по ссылке: %s

Ссылка действует один час и может быть использована только один раз.
Если вы не запрашивали сброс пароля, просто проигнорируйте это письмо.`,
		message.Username, link)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write message", sl.Err(err))
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}

	return client.Quit()
}

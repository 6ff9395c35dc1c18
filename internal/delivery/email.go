package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig holds the mail channel configuration
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// EmailDeliverer mails rendered copies to the configured recipients.
type EmailDeliverer struct {
	cfg    SMTPConfig
	dial   func(m *gomail.Message) error
	logger *zap.Logger
}

// NewEmailDeliverer creates an SMTP deliverer
func NewEmailDeliverer(cfg SMTPConfig, logger *zap.Logger) *EmailDeliverer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailDeliverer{
		cfg:    cfg,
		dial:   func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		logger: logger,
	}
}

// Deliver mails the document as an attachment
func (e *EmailDeliverer) Deliver(ctx context.Context, filename string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}
	if len(e.cfg.Recipients) == 0 {
		return fmt.Errorf("%w: no recipients configured", ErrDeliveryUnavailable)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", e.cfg.From)
	msg.SetHeader("To", e.cfg.Recipients...)
	msg.SetHeader("Subject", fmt.Sprintf("Vale %s", filename))
	msg.SetBody("text/plain", "Se adjunta la copia del vale generada por el sistema.")
	msg.Attach(filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(content))
		return err
	}))

	if err := e.dial(msg); err != nil {
		e.logger.Error("Failed to send document by mail",
			zap.String("filename", filename),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeliveryUnavailable, err)
	}

	e.logger.Info("Document mailed",
		zap.String("filename", filename),
		zap.Strings("recipients", e.cfg.Recipients))
	return nil
}

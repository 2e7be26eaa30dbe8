// Package notify sends the account-workflow emails. Delivery is
// fire-and-forget: failures are logged and never surfaced to the request
// that triggered them.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"rpi-diario/config"
	"rpi-diario/core/utils"
)

type Mailer struct {
	cfg    config.MailConfig
	logger *utils.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg config.MailConfig, logger *utils.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (m *Mailer) enabled() bool {
	return m != nil && m.cfg.Enabled && m.cfg.Host != "" && m.cfg.From != ""
}

// NotifyRegistration tells the admin a new account awaits approval.
func (m *Mailer) NotifyRegistration(username, fullName string) {
	if !m.enabled() || m.cfg.AdminEmail == "" {
		return
	}
	subject := "Novo cadastro aguardando aprovação"
	body := fmt.Sprintf("O usuário %s (%s) se cadastrou e aguarda ativação.", username, fullName)
	m.deliver([]string{m.cfg.AdminEmail}, subject, body)
}

// NotifyActivation tells the officer the account was approved.
func (m *Mailer) NotifyActivation(email, fullName string) {
	if !m.enabled() || email == "" {
		return
	}
	subject := "Cadastro aprovado"
	body := fmt.Sprintf("Olá %s, seu acesso ao sistema de relatórios foi liberado.", fullName)
	m.deliver([]string{email}, subject, body)
}

func (m *Mailer) deliver(to []string, subject, body string) {
	go func() {
		addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
		var auth smtp.Auth
		if m.cfg.Username != "" {
			auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		}
		msg := strings.Join([]string{
			"From: " + m.cfg.From,
			"To: " + strings.Join(to, ", "),
			"Subject: " + subject,
			"MIME-Version: 1.0",
			`Content-Type: text/plain; charset="utf-8"`,
			"",
			body,
		}, "\r\n")
		if err := m.send(addr, auth, m.cfg.From, to, []byte(msg)); err != nil {
			if m.logger != nil {
				m.logger.Warnf("mail delivery failed: %v", err)
			}
		}
	}()
}

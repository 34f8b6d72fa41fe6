package services

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"

	"conecta/internal/models"
)

const resetSubject = "Redefinir sua senha | Conecta Lagoa"

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family:sans-serif;max-width:560px;margin:0 auto">
  <h2>Redefinir senha</h2>
  <p>Olá, <strong>{{.Name}}</strong>!</p>
  <p>Recebemos uma solicitação para redefinir a senha da sua conta. Use o link abaixo para criar uma nova senha:</p>
  <p><a href="{{.Link}}">Redefinir senha</a></p>
  <p>Este link expira em <strong>1 hora</strong>. Se você não solicitou a redefinição, ignore este e-mail.</p>
</div>`))

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message) error
}

// ResetMailer renders the password-reset email and queues it.
type ResetMailer struct {
	queue   Enqueuer
	baseURL string
}

func NewResetMailer(queue Enqueuer, baseURL string) *ResetMailer {
	return &ResetMailer{queue: queue, baseURL: strings.TrimRight(baseURL, "/")}
}

// NotifyPasswordReset implements auth.ResetNotifier.
func (m *ResetMailer) NotifyPasswordReset(_ context.Context, account *models.Account, token string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		Name string
		Link string
	}{
		Name: account.Name,
		Link: ResetLink(m.baseURL, token, account.Role),
	})
	if err != nil {
		return err
	}

	return m.queue.Enqueue(Message{
		To:       account.Email,
		Subject:  resetSubject,
		HTMLBody: body.String(),
	})
}

// ResetLink is the frontend page that completes a reset.
func ResetLink(baseURL, token string, role models.Role) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("tipo", string(role))
	return baseURL + "/redefinir-senha?" + q.Encode()
}

package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"go.uber.org/zap"
)

// Sender delivers transactional mail over SMTP. With no host configured it
// logs the mail instead, which is what development and tests want.
type Sender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Logger   *zap.Logger
}

func NewSender(host, port, username, password, from string, logger *zap.Logger) *Sender {
	return &Sender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Logger:   logger,
	}
}

const verificationTemplate = `
<!DOCTYPE html>
<html>
<body>
    <p>Hi {{.Username}},</p>
    <p>Thanks for signing up. Please verify your email address to start chatting.</p>
    <p><a href="{{.Link}}">Verify Email</a></p>
    <p>If you didn't create an account, you can safely ignore this email.</p>
</body>
</html>
`

const inviteTemplate = `
<!DOCTYPE html>
<html>
<body>
    <p>Hi {{.Username}},</p>
    <p>{{.Inviter}} added you to the chat "{{.ChatName}}".</p>
    <p>Log in to join the conversation.</p>
</body>
</html>
`

// SendVerification mails the signup verification link.
func (s *Sender) SendVerification(to, username, link string) error {
	return s.send(to, "Verify your email", verificationTemplate,
		map[string]string{"Username": username, "Link": link})
}

// SendChatInvite tells a user they were added to a chat.
func (s *Sender) SendChatInvite(to, username, inviter, chatName string) error {
	if chatName == "" {
		chatName = "a direct chat"
	}
	return s.send(to, "You were added to a chat", inviteTemplate,
		map[string]string{"Username": username, "Inviter": inviter, "ChatName": chatName})
}

func (s *Sender) send(to, subject, tmpl string, data map[string]string) error {
	t, err := template.New("mail").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	headers := map[string]string{
		"From":         s.From,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body.String()

	if s.Host == "" {
		s.Logger.Info("mock email",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(message))
}

package utils

import (
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer sends notification email over SMTP. A zero-config mailer (no host)
// is disabled and silently drops messages, so environments without SMTP
// still work.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	baseURL  string
}

func NewMailer(host, port, username, password, from, baseURL string) *Mailer {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 587
	}
	return &Mailer{
		host:     host,
		port:     p,
		username: username,
		password: password,
		from:     from,
		baseURL:  baseURL,
	}
}

// Enabled reports whether the mailer has an SMTP host to talk to.
func (m *Mailer) Enabled() bool {
	return m.host != ""
}

// SendMentionEmail notifies a user that they were mentioned in a comment.
func (m *Mailer) SendMentionEmail(to, mentionedBy, issueKey, issueTitle, comment string) error {
	if !m.Enabled() {
		return nil
	}

	subject := fmt.Sprintf("%s mentioned you on %s", mentionedBy, issueKey)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>You were mentioned</h2>
			<p><strong>%s</strong> mentioned you in a comment on <strong>%s: %s</strong></p>
			<blockquote>%s</blockquote>
			<p><a href="%s/issues?key=%s">Open the issue</a></p>
		</body>
		</html>
	`, mentionedBy, issueKey, issueTitle, comment, m.baseURL, issueKey)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	return nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mail

import (
	"bytes"
	"fmt"
	"text/template"
)

var welcomeTmpl = template.Must(template.New("welcome").Parse(
	`Hi {{.Name}},

Welcome to Classifieds, we're glad to have you on board.
You can complete your profile here: {{.URL}}

If you need any help, just reply to this email.
`))

var resetTmpl = template.Must(template.New("reset").Parse(
	`Hi {{.Name}},

Forgot your password? Submit a PATCH request with your new password and
passwordConfirm to: {{.URL}}

This link is valid for {{.Minutes}} minutes. If you didn't forget your
password, please ignore this email.
`))

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Welcome builds the signup email.
func Welcome(to, name, profileURL string) (Message, error) {
	text, err := execute(welcomeTmpl, map[string]string{"Name": firstName(name), "URL": profileURL})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: "Welcome to Classifieds!", Text: text}, nil
}

// PasswordReset builds the reset email carrying resetURL.
func PasswordReset(to, name, resetURL string, validMinutes int) (Message, error) {
	text, err := execute(resetTmpl, map[string]any{
		"Name":    firstName(name),
		"URL":     resetURL,
		"Minutes": validMinutes,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", validMinutes),
		Text:    text,
	}, nil
}

package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"coopconsole/internal/api"
	dErrors "coopconsole/pkg/domain-errors"
)

const (
	fieldIdentifier = iota
	fieldPassword
	fieldCount
)

// signInForm is the sign-in view state. err is shown inline under the
// fields; a failed sign-in never leaves this form.
type signInForm struct {
	inputs     [fieldCount]textinput.Model
	focused    int
	err        string
	submitting bool
}

func newSignInForm() signInForm {
	identifier := textinput.New()
	identifier.Placeholder = "phone number or email"
	identifier.Prompt = "Login    "
	identifier.CharLimit = 128

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	return signInForm{inputs: [fieldCount]textinput.Model{identifier, password}}
}

// focus moves the cursor to the focused field.
func (f *signInForm) focus() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	return f.inputs[f.focused].Focus()
}

func (f *signInForm) move(delta int) tea.Cmd {
	f.focused = (f.focused + delta + fieldCount) % fieldCount
	return f.focus()
}

func (f *signInForm) credentials() api.Credentials {
	return api.Credentials{
		Identifier: strings.TrimSpace(f.inputs[fieldIdentifier].Value()),
		Password:   f.inputs[fieldPassword].Value(),
	}
}

// fail shows err and clears the password.
func (f *signInForm) fail(err error) {
	f.err = dErrors.UserMessage(err)
	f.inputs[fieldPassword].Reset()
	f.focused = fieldPassword
	f.focus()
}

func (model Model) handleSignInKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if model.form.submitting {
		return model, nil
	}

	switch {
	case key.Matches(message, model.keys.NextField):
		cmd := model.form.move(1)
		return model, cmd

	case key.Matches(message, model.keys.PrevField):
		cmd := model.form.move(-1)
		return model, cmd

	case key.Matches(message, model.keys.Submit):
		if model.form.focused == fieldIdentifier {
			cmd := model.form.move(1)
			return model, cmd
		}
		return model.submitSignIn()
	}

	var cmd tea.Cmd
	idx := model.form.focused
	model.form.inputs[idx], cmd = model.form.inputs[idx].Update(message)
	return model, cmd
}

// submitSignIn sends the form. The session is only touched once the result
// comes back successful.
func (model Model) submitSignIn() (tea.Model, tea.Cmd) {
	creds := model.form.credentials()
	if creds.Identifier == "" || creds.Password == "" {
		model.form.err = "Enter your phone number or email and your password."
		return model, nil
	}
	model.form.err = ""
	model.form.submitting = true

	client, ctx := model.deps.SignIn, model.deps.Context
	return model, func() tea.Msg {
		identity, credential, err := client.SignIn(ctx, creds)
		return signInResultMsg{identity: identity, credential: credential, err: err}
	}
}

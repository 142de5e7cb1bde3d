package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"coopconsole/internal/guard"
	"coopconsole/internal/layout"
)

const (
	sidebarWidth = 22
	chromeHeight = 4 // topbar with border, footer, spacing
)

// View implements tea.Model.
func (model Model) View() string {
	if model.waiting || model.current == nil {
		return model.renderWaiting()
	}
	if model.current.path == guard.PathSignIn {
		return model.renderSignIn()
	}

	state := model.deps.Layout.State()
	sections := []string{model.renderTopbar(state)}

	switch {
	case state.SidebarVisible && state.IsMobile:
		// The open menu covers the content on narrow terminals.
		sections = append(sections, model.renderSidebar(model.width))
	case state.SidebarVisible:
		content := model.renderContent(model.contentWidth(state))
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, model.renderSidebar(sidebarWidth), " ", content))
	default:
		sections = append(sections, model.renderContent(model.contentWidth(state)))
	}

	if model.notice != "" {
		sections = append(sections, model.styles.err.Render(model.notice))
	}
	sections = append(sections, model.help.View(model.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (model Model) contentWidth(state layout.State) int {
	width := model.width
	if width <= 0 {
		width = 80
	}
	if state.SidebarVisible && !state.IsMobile {
		width -= sidebarWidth + 2
	}
	return max(width, 20)
}

func (model Model) contentHeight() int {
	h := model.height - chromeHeight
	if h < 5 {
		return 5
	}
	return h
}

func (model Model) renderWaiting() string {
	return fmt.Sprintf("\n  %s Restoring session…\n", model.spinner.View())
}

func (model Model) renderTopbar(state layout.State) string {
	var b strings.Builder
	if state.IsMobile {
		b.WriteString("☰ ")
	}
	b.WriteString(model.styles.title.Render("coopconsole"))
	if user := model.deps.Session.CurrentUser(); user != nil {
		b.WriteString(model.styles.faint.Render(" │ "))
		b.WriteString(model.styles.text.Render(user.DisplayName()))
		b.WriteString(model.styles.faint.Render(" · " + user.Role.String()))
	}
	style := model.styles.topbar
	if model.width > 0 {
		style = style.Width(model.width)
	}
	return style.Render(b.String())
}

func (model Model) renderSidebar(width int) string {
	var lines []string
	for i, item := range model.menu() {
		label := fmt.Sprintf("%d %s", i+1, item.Label)
		switch {
		case i == model.menuCursor:
			lines = append(lines, model.styles.selected.Render("› "+label))
		case model.current != nil && item.Path == model.current.path:
			lines = append(lines, model.styles.title.Render("  "+label))
		default:
			lines = append(lines, model.styles.text.Render("  "+label))
		}
	}
	lines = append(lines, "", model.styles.faint.Render("  L log out"))
	style := model.styles.sidebar
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (model Model) renderSignIn() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(model.styles.title.Render("Sign in to coopconsole"))
	b.WriteString("\n\n")
	for _, input := range model.form.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case model.form.submitting:
		b.WriteString(model.spinner.View() + " Signing in…")
	case model.form.err != "":
		b.WriteString(model.styles.err.Render(model.form.err))
	}
	b.WriteString("\n\n")
	b.WriteString(model.help.View(signInHelp{keys: model.keys}))
	return model.styles.card.Render(b.String())
}

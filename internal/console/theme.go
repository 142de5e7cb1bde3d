package console

import "github.com/charmbracelet/lipgloss"

// Theme is the console palette. Colors are ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	ErrorText  lipgloss.Color
	OKText     lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
	BorderColor        lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	Accent:             lipgloss.Color("36"),
	ErrorText:          lipgloss.Color("203"),
	OKText:             lipgloss.Color("78"),
	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("231"),
	BorderColor:        lipgloss.Color("240"),
}

// styles are derived once per theme.
type styles struct {
	title    lipgloss.Style
	faint    lipgloss.Style
	text     lipgloss.Style
	err      lipgloss.Style
	ok       lipgloss.Style
	selected lipgloss.Style
	sidebar  lipgloss.Style
	topbar   lipgloss.Style
	card     lipgloss.Style
	label    lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Foreground(theme.Accent).Bold(true),
		faint: lipgloss.NewStyle().Foreground(theme.FaintText),
		text:  lipgloss.NewStyle().Foreground(theme.NormalText),
		err:   lipgloss.NewStyle().Foreground(theme.ErrorText),
		ok:    lipgloss.NewStyle().Foreground(theme.OKText),
		selected: lipgloss.NewStyle().
			Foreground(theme.SelectedForeground).
			Background(theme.SelectedBackground).
			Bold(true),
		sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(theme.BorderColor).
			PaddingRight(1),
		topbar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(theme.BorderColor),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderColor).
			Padding(0, 1),
		label: lipgloss.NewStyle().Foreground(theme.FaintText),
	}
}

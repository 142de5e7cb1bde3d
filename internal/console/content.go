package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"coopconsole/internal/fetch"
	"coopconsole/internal/guard"
	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/models"
	dErrors "coopconsole/pkg/domain-errors"
)

// renderContent draws the current screen's body.
func (model Model) renderContent(width int) string {
	if model.current == nil {
		return ""
	}
	switch res := model.current.res.(type) {
	case *fetch.Resource[fetch.Dashboard]:
		return renderResource(model, res, width, model.renderDashboard)
	case *fetch.Resource[[]models.Association]:
		return renderResource(model, res, width, model.renderAssociations)
	case *fetch.Resource[[]models.Member]:
		return renderResource(model, res, width, model.renderMembers)
	case *fetch.Resource[[]models.NotificationLogEntry]:
		return renderResource(model, res, width, model.renderNotifications)
	}

	if model.current.path == guard.PathProfile {
		return model.renderProfile()
	}
	return model.styles.err.Render("Not found") + "\n" +
		model.styles.faint.Render("Pick a screen from the menu.")
}

// renderResource handles the loading and error states every screen shares.
func renderResource[T any](model Model, res *fetch.Resource[T], width int, body func(T, int) string) string {
	snap := res.Snapshot()
	switch {
	case snap.Loading && !snap.Loaded:
		return model.spinner.View() + " Loading…"
	case snap.Err != nil:
		return model.styles.err.Render(dErrors.UserMessage(snap.Err)) + "\n" +
			model.styles.faint.Render("Press r to retry")
	case !snap.Loaded:
		return ""
	}
	out := body(snap.Data, width)
	if snap.Loading {
		out = model.spinner.View() + " Refreshing…\n" + out
	}
	return out
}

func (model Model) renderDashboard(d fetch.Dashboard, width int) string {
	s := d.Summary
	var cards []string
	if model.current.path == guard.PathCooperativeDashboard {
		cards = append(cards, model.stat("Associations", fmt.Sprint(s.TotalAssociations)))
	}
	cards = append(cards,
		model.stat("Members", fmt.Sprint(s.TotalMembers)),
		model.stat("Active loans", fmt.Sprint(s.ActiveLoans)),
		model.stat("Pending loans", fmt.Sprint(s.PendingLoans)),
		model.stat("Savings", money(s.TotalSavings)),
		model.stat("Loan book", money(s.TotalLoanAmount)),
		model.stat("Repayment", fmt.Sprintf("%.1f%%", s.RepaymentRate)),
	)

	sections := []string{wrapCards(cards, width)}

	if len(s.MonthlyGrowth) > 0 {
		lines := []string{model.styles.title.Render("Monthly growth")}
		for _, p := range s.MonthlyGrowth {
			lines = append(lines, fmt.Sprintf("  %-10s %s", p.Month, money(p.Value)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	recent := []string{model.styles.title.Render("Recent notifications")}
	switch {
	case d.NotificationsErr != nil:
		recent = append(recent, model.styles.faint.Render("  Notifications are unavailable right now."))
	case len(d.Notifications) == 0:
		recent = append(recent, model.styles.faint.Render("  No notifications sent yet."))
	default:
		for _, n := range d.Notifications {
			recent = append(recent, fmt.Sprintf("  %s  %s  %s", n.SentAt, n.Recipient, n.Subject))
		}
	}
	sections = append(sections, strings.Join(recent, "\n"))
	return strings.Join(sections, "\n\n")
}

func (model Model) stat(label, value string) string {
	return model.styles.card.Render(model.styles.label.Render(label) + "\n" + model.styles.text.Bold(true).Render(value))
}

// wrapCards lays cards out in rows no wider than width.
func wrapCards(cards []string, width int) string {
	var rows []string
	var row []string
	used := 0
	for _, c := range cards {
		w := lipgloss.Width(c)
		if len(row) > 0 && used+w > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, used = nil, 0
		}
		row = append(row, c)
		used += w
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (model Model) renderAssociations(items []models.Association, width int) string {
	if len(items) == 0 {
		return model.styles.faint.Render("No associations yet.")
	}
	rows := make([]table.Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, table.Row{a.Name, a.Location, a.Status, fmt.Sprint(a.MemberCount)})
	}
	return model.renderTable(width, []column{
		{"Name", 3}, {"Location", 2}, {"Status", 1}, {"Members", 1},
	}, rows)
}

func (model Model) renderMembers(items []models.Member, width int) string {
	if len(items) == 0 {
		return model.styles.faint.Render("No members yet.")
	}
	rows := make([]table.Row, 0, len(items))
	for _, m := range items {
		contact := m.PhoneNumber
		if contact == "" {
			contact = m.Email
		}
		rows = append(rows, table.Row{m.Name, contact, m.LoanStatus, money(m.Savings), m.RegistrationDate})
	}
	return model.renderTable(width, []column{
		{"Name", 3}, {"Contact", 3}, {"Loan", 1}, {"Savings", 2}, {"Joined", 2},
	}, rows)
}

func (model Model) renderNotifications(items []models.NotificationLogEntry, width int) string {
	if len(items) == 0 {
		return model.styles.faint.Render("No notifications sent yet.")
	}
	rows := make([]table.Row, 0, len(items))
	for _, n := range items {
		rows = append(rows, table.Row{n.SentAt, n.Recipient, n.Channel, n.Subject, n.Status})
	}
	return model.renderTable(width, []column{
		{"Sent", 2}, {"Recipient", 2}, {"Channel", 1}, {"Subject", 3}, {"Status", 1},
	}, rows)
}

// column is a table header with a relative width.
type column struct {
	title  string
	weight int
}

func (model Model) renderTable(width int, cols []column, rows []table.Row) string {
	total := 0
	for _, c := range cols {
		total += c.weight
	}
	usable := max(width-2*len(cols), len(cols)*4)
	columns := make([]table.Column, len(cols))
	for i, c := range cols {
		columns[i] = table.Column{Title: c.title, Width: max(usable*c.weight/total, 4)}
	}

	st := table.DefaultStyles()
	st.Header = st.Header.Foreground(DefaultTheme.Accent).Bold(true)
	st.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(min(len(rows)+1, model.contentHeight())),
		table.WithStyles(st),
	)
	return t.View()
}

func (model Model) renderProfile() string {
	user := model.deps.Session.CurrentUser()
	if user == nil {
		return ""
	}
	field := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return fmt.Sprintf("%s %s", model.styles.label.Render(fmt.Sprintf("%-14s", label)), model.styles.text.Render(value))
	}
	lines := []string{
		model.styles.title.Render(user.DisplayName()),
		"",
		field("Role", user.Role.String()),
		field("Email", user.Email),
		field("Phone", user.PhoneNumber),
	}
	if exp := jwttoken.ExpiresAt(model.deps.Session.Token()); !exp.IsZero() {
		lines = append(lines, field("Session ends", exp.Local().Format("2006-01-02 15:04")))
	}
	switch user.Role {
	case models.RoleCooperativeAdmin:
		lines = append(lines, field("Cooperative", user.CooperativeID))
	case models.RoleAssociationAdmin:
		lines = append(lines, field("Association", user.AssociationID))
	}
	return strings.Join(lines, "\n")
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

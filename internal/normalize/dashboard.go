package normalize

import "coopconsole/internal/models"

// Dashboard field priority. Earlier paths win. Sources named *Cents are in
// minor units and *Ratio sources are fractions; both are converted after the
// winner is chosen, so a major-unit source listed first always takes priority.
var (
	dashAssociations = []string{"totalAssociations", "associations.total", "associationCount", "total_associations"}
	dashMembers      = []string{"totalMembers", "members.total", "memberCount", "total_members"}
	dashActiveLoans  = []string{"activeLoans", "loans.active", "active_loans"}
	dashPendingLoans = []string{"pendingLoans", "loans.pending", "pending_loans"}
	dashLoanAmount   = []string{"totalLoanAmount", "loans.amount", "total_loan_amount", "loanPortfolio"}

	dashSavings = []unitSource{
		{path: "totalSavings", scale: 1},
		{path: "savings.total", scale: 1},
		{path: "total_savings", scale: 1},
		{path: "totalSavingsCents", scale: 0.01},
	}
	dashRepayment = []unitSource{
		{path: "repaymentRate", scale: 1},
		{path: "repayment_rate", scale: 1},
		{path: "loans.repaymentRate", scale: 1},
		{path: "repaymentRatio", scale: 100},
	}

	growthSeries = []string{"monthlyGrowth", "growth", "chart.data"}
	growthMonth  = []string{"month", "label", "name", "period"}
	growthValue  = []string{"value", "count", "total"}
)

type unitSource struct {
	path  string
	scale float64
}

func scaled(r Raw, sources []unitSource) float64 {
	for _, s := range sources {
		if _, ok := r.first([]string{s.path}); ok {
			return finite(r.Float(s.path) * s.scale)
		}
	}
	return 0
}

// DashboardSummary normalizes a dashboard response. The same shape serves the
// cooperative and association dashboards; association dashboards simply omit
// the association count.
func DashboardSummary(r Raw) models.DashboardSummary {
	r = Unwrap(r)
	if summary := r.Get("summary"); summary.IsObject() {
		series := MonthlySeries(r)
		out := dashboardFields(summary)
		if len(series) == 0 {
			series = MonthlySeries(summary)
		}
		out.MonthlyGrowth = series
		return out
	}
	out := dashboardFields(r)
	out.MonthlyGrowth = MonthlySeries(r)
	return out
}

func dashboardFields(r Raw) models.DashboardSummary {
	return models.DashboardSummary{
		TotalAssociations: r.Int(dashAssociations...),
		TotalMembers:      r.Int(dashMembers...),
		ActiveLoans:       r.Int(dashActiveLoans...),
		PendingLoans:      r.Int(dashPendingLoans...),
		TotalSavings:      scaled(r, dashSavings),
		TotalLoanAmount:   r.Float(dashLoanAmount...),
		RepaymentRate:     scaled(r, dashRepayment),
	}
}

// MonthlySeries normalizes the dashboard time series. Points missing a label
// keep an empty month rather than being dropped, so indexes stay aligned with
// the backend's ordering.
func MonthlySeries(r Raw) []models.MonthlyPoint {
	var items []Raw
	for _, key := range growthSeries {
		if v := r.Get(key); v.IsArray() {
			items = v.List()
			break
		}
	}
	out := make([]models.MonthlyPoint, 0, len(items))
	for _, it := range items {
		out = append(out, models.MonthlyPoint{
			Month: it.StringOr("", growthMonth...),
			Value: it.Float(growthValue...),
		})
	}
	return out
}

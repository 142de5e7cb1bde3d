package models

// Association is the canonical association record.
type Association struct {
	ID            string
	Name          string
	Location      string
	Status        string
	MemberCount   int
	CooperativeID string
	CreatedAt     string
}

// Member is the canonical association member record.
type Member struct {
	ID               string
	Name             string
	Email            string
	PhoneNumber      string
	Role             string
	LoanStatus       string
	RegistrationDate string
	AssociationID    string
	Savings          float64
}

// DashboardSummary is the canonical headline figures of a dashboard screen.
type DashboardSummary struct {
	TotalAssociations int
	TotalMembers      int
	ActiveLoans       int
	PendingLoans      int
	TotalSavings      float64
	TotalLoanAmount   float64
	RepaymentRate     float64
	MonthlyGrowth     []MonthlyPoint
}

// MonthlyPoint is one entry of a dashboard time series.
type MonthlyPoint struct {
	Month string
	Value float64
}

// NotificationLogEntry is the canonical record of a sent notification.
type NotificationLogEntry struct {
	ID        string
	Recipient string
	Channel   string
	Subject   string
	Message   string
	Status    string
	SentAt    string
}

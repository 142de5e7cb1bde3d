package normalize

import "coopconsole/internal/models"

// Member field priority. Earlier paths win.
var (
	memberID           = []string{"id", "_id", "memberId", "member_id"}
	memberName         = []string{"name", "fullName", "full_name"}
	memberFirstName    = []string{"firstName", "first_name"}
	memberLastName     = []string{"lastName", "last_name"}
	memberEmail        = []string{"email", "emailAddress", "contact.email"}
	memberPhone        = []string{"phoneNumber", "phone_number", "phone", "contact.phone"}
	memberRole         = []string{"role", "memberRole"}
	memberLoanStatus   = []string{"loanStatus", "loan_status", "loan.status"}
	memberRegistration = []string{"registrationDate", "registration_date", "joinedAt", "createdAt"}
	memberAssociation  = []string{"associationId", "association_id", "association.id"}
	memberSavings      = []string{"savings", "totalSavings", "savingsBalance", "account.balance"}

	memberListKeys = []string{"members", "items", "results"}
)

const (
	DefaultMemberRole = "Member"
	DefaultLoanStatus = "No Loan"
)

// Member normalizes one member record. The display name uses a combined name
// field when any is present and only then composes first and last name.
func Member(r Raw) models.Member {
	name, ok := r.String(memberName...)
	if !ok {
		name = joinName(r, memberFirstName, memberLastName)
	}
	return models.Member{
		ID:               r.StringOr("", memberID...),
		Name:             name,
		Email:            r.StringOr("", memberEmail...),
		PhoneNumber:      r.StringOr("", memberPhone...),
		Role:             r.StringOr(DefaultMemberRole, memberRole...),
		LoanStatus:       r.StringOr(DefaultLoanStatus, memberLoanStatus...),
		RegistrationDate: r.StringOr("", memberRegistration...),
		AssociationID:    r.StringOr("", memberAssociation...),
		Savings:          r.Float(memberSavings...),
	}
}

// Members normalizes a member list response.
func Members(r Raw) []models.Member {
	items := Unwrap(r).List(memberListKeys...)
	out := make([]models.Member, 0, len(items))
	for _, it := range items {
		out = append(out, Member(it))
	}
	return out
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"coopconsole/internal/models"
)

type NormalizeSuite struct {
	suite.Suite
}

func TestNormalizeSuite(t *testing.T) {
	suite.Run(t, new(NormalizeSuite))
}

func (s *NormalizeSuite) TestMemberDefaults() {
	got := Member(ParseString(`{}`))

	s.Equal(models.Member{
		Role:       "Member",
		LoanStatus: "No Loan",
	}, got)
	s.Equal("", got.Name)
	s.Equal("", got.RegistrationDate)
}

func (s *NormalizeSuite) TestMemberNamePrecedence() {
	s.Run("second-priority combined field wins over absent first", func() {
		got := Member(ParseString(`{"fullName":"A B","firstName":"A","lastName":"B"}`))
		s.Equal("A B", got.Name)
	})

	s.Run("explicit null name counts as absent", func() {
		got := Member(ParseString(`{"name":null,"fullName":"Kofi Boateng","firstName":"X","lastName":"Y"}`))
		s.Equal("Kofi Boateng", got.Name)
	})

	s.Run("blank name counts as absent", func() {
		got := Member(ParseString(`{"name":"   ","full_name":"Esi Owusu"}`))
		s.Equal("Esi Owusu", got.Name)
	})

	s.Run("first and last are composed only without a combined field", func() {
		got := Member(ParseString(`{"first_name":"Yaw","last_name":"Darko"}`))
		s.Equal("Yaw Darko", got.Name)
	})

	s.Run("single name part is trimmed", func() {
		got := Member(ParseString(`{"lastName":"Darko"}`))
		s.Equal("Darko", got.Name)
	})

	s.Run("first priority wins when both present and disagree", func() {
		got := Member(ParseString(`{"name":"Primary","fullName":"Secondary"}`))
		s.Equal("Primary", got.Name)
	})
}

func (s *NormalizeSuite) TestMemberAlternateShapes() {
	got := Member(ParseString(`{
		"_id": 42,
		"memberRole": "Treasurer",
		"loan": {"status": "Active"},
		"contact": {"email": "m@example.org", "phone": "+233200000000"},
		"joinedAt": "2025-01-04",
		"association": {"id": "assoc-1"},
		"account": {"balance": "1250.50"}
	}`))

	s.Equal("42", got.ID)
	s.Equal("Treasurer", got.Role)
	s.Equal("Active", got.LoanStatus)
	s.Equal("m@example.org", got.Email)
	s.Equal("+233200000000", got.PhoneNumber)
	s.Equal("2025-01-04", got.RegistrationDate)
	s.Equal("assoc-1", got.AssociationID)
	s.InDelta(1250.50, got.Savings, 0.0001)
}

func (s *NormalizeSuite) TestNumericCoercion() {
	cases := map[string]float64{
		`{"savings": "abc"}`:                  0,
		`{"savings": "NaN"}`:                  0,
		`{"savings": "Infinity"}`:             0,
		`{"savings": true}`:                   0,
		`{"savings": " 12.5 "}`:               12.5,
		`{"savings": 7}`:                      7,
		`{"savings": {"x": 1}}`:               0,
		`{"savings": 1e400}`:                  0,
		`{"totalSavings": "3"}`:               3,
		`{"savings": "x", "totalSavings": 9}`: 0,
	}
	for input, want := range cases {
		s.Equal(want, Member(ParseString(input)).Savings, input)
	}
}

func (s *NormalizeSuite) TestIdempotentAndIgnoresUnknownFields() {
	base := `{"id":"m1","fullName":"A B","role":"Secretary","loanStatus":"Repaid","savings":"10"}`
	extra := `{"id":"m1","fullName":"A B","role":"Secretary","loanStatus":"Repaid","savings":"10","colour":"blue","nested":{"deep":[1,2]}}`

	first := Member(ParseString(base))
	s.Equal(first, Member(ParseString(base)))
	s.Equal(first, Member(ParseString(extra)))
}

func (s *NormalizeSuite) TestInvalidJSONNormalizesToDefaults() {
	s.Equal(Member(ParseString(`{}`)), Member(Parse([]byte("<html>502</html>"))))
	s.Empty(Members(Parse(nil)))
	s.NotNil(Members(Parse(nil)))
}

func (s *NormalizeSuite) TestListsAcceptEnvelopeAndShapes() {
	inputs := []string{
		`[{"id":"1"},{"id":"2"}]`,
		`{"data":[{"id":"1"},{"id":"2"}]}`,
		`{"data":{"members":[{"id":"1"},{"id":"2"}]}}`,
		`{"members":[{"id":"1"},{"id":"2"}],"total":2}`,
		`{"items":[{"id":"1"},{"id":"2"}]}`,
	}
	for _, in := range inputs {
		got := Members(ParseString(in))
		s.Require().Len(got, 2, in)
		s.Equal("1", got[0].ID)
		s.Equal("2", got[1].ID)
	}
}

func (s *NormalizeSuite) TestListsNonArrayBecomeEmpty() {
	for _, in := range []string{`{}`, `{"data":null}`, `{"members":"none"}`, `{"members":{"id":"1"}}`, `null`, `42`} {
		got := Members(ParseString(in))
		s.NotNil(got, in)
		s.Empty(got, in)
	}
}

func (s *NormalizeSuite) TestAssociation() {
	got := Association(ParseString(`{
		"association_id": "a-9",
		"associationName": "Kumasi Growers",
		"region": "Ashanti",
		"members": [{}, {}, {}],
		"cooperative": {"id": "coop-1"},
		"created_at": "2024-06-01"
	}`))

	s.Equal(models.Association{
		ID:            "a-9",
		Name:          "Kumasi Growers",
		Location:      "Ashanti",
		Status:        DefaultAssociationStatus,
		MemberCount:   3,
		CooperativeID: "coop-1",
		CreatedAt:     "2024-06-01",
	}, got)

	s.Equal(12, Association(ParseString(`{"memberCount":"12","members":[{}]}`)).MemberCount)
	s.Len(Associations(ParseString(`{"data":{"associations":[{"name":"x"}]}}`)), 1)
}

func (s *NormalizeSuite) TestDashboardSummary() {
	got := DashboardSummary(ParseString(`{"data":{
		"totalAssociations": 4,
		"members": {"total": "120"},
		"loans": {"active": 10, "pending": "3", "amount": 5000.5},
		"totalSavingsCents": 123456,
		"repaymentRatio": 0.875,
		"monthlyGrowth": [
			{"month": "Jan", "value": 5, "count": 99},
			{"label": "Feb", "count": 7},
			{"value": "n/a"}
		]
	}}`))

	s.Equal(4, got.TotalAssociations)
	s.Equal(120, got.TotalMembers)
	s.Equal(10, got.ActiveLoans)
	s.Equal(3, got.PendingLoans)
	s.InDelta(5000.5, got.TotalLoanAmount, 0.001)
	s.InDelta(1234.56, got.TotalSavings, 0.001)
	s.InDelta(87.5, got.RepaymentRate, 0.001)
	s.Equal([]models.MonthlyPoint{
		{Month: "Jan", Value: 5},
		{Month: "Feb", Value: 7},
		{Month: "", Value: 0},
	}, got.MonthlyGrowth)
}

func (s *NormalizeSuite) TestDashboardUnitPriority() {
	got := DashboardSummary(ParseString(`{"totalSavings": 10, "totalSavingsCents": 99999, "repaymentRate": 60, "repaymentRatio": 0.9}`))
	s.Equal(10.0, got.TotalSavings)
	s.Equal(60.0, got.RepaymentRate)
}

func (s *NormalizeSuite) TestDashboardNestedSummary() {
	got := DashboardSummary(ParseString(`{"summary":{"totalMembers":8},"growth":[{"period":"Q1","total":2}]}`))
	s.Equal(8, got.TotalMembers)
	s.Equal([]models.MonthlyPoint{{Month: "Q1", Value: 2}}, got.MonthlyGrowth)
}

func (s *NormalizeSuite) TestDashboardDefaults() {
	got := DashboardSummary(ParseString(`{}`))
	s.Equal(models.DashboardSummary{MonthlyGrowth: []models.MonthlyPoint{}}, got)
}

func (s *NormalizeSuite) TestNotificationLog() {
	entries := NotificationLog(ParseString(`{"data":{"logs":[
		{"_id":"n1","to":"+233","type":"SMS","body":"Meeting at 5","delivery_status":"DELIVERED","sent_at":"2026-01-01T10:00:00Z"},
		{}
	]}}`))
	s.Require().Len(entries, 2)
	s.Equal(models.NotificationLogEntry{
		ID:        "n1",
		Recipient: "+233",
		Channel:   "SMS",
		Message:   "Meeting at 5",
		Status:    "DELIVERED",
		SentAt:    "2026-01-01T10:00:00Z",
	}, entries[0])
	s.Equal(DefaultNotificationChannel, entries[1].Channel)
	s.Equal(DefaultNotificationStatus, entries[1].Status)
}

func TestParseRole(t *testing.T) {
	cases := map[string]models.Role{
		"COOPERATIVE_ADMIN":   models.RoleCooperativeAdmin,
		"cooperative_admin":   models.RoleCooperativeAdmin,
		"CoopAdmin":           models.RoleCooperativeAdmin,
		"super-admin":         models.RoleCooperativeAdmin,
		"ASSOCIATION_ADMIN":   models.RoleAssociationAdmin,
		"associationAdmin":    models.RoleAssociationAdmin,
		" Association Admin ": models.RoleAssociationAdmin,
		"ASSOC_ADMIN":         models.RoleAssociationAdmin,
		"member":              models.RoleUnknown,
		"":                    models.RoleUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRole(in), in)
	}
}

func TestSignIn(t *testing.T) {
	t.Run("nested user under data envelope", func(t *testing.T) {
		identity, cred := SignIn(ParseString(`{"data":{
			"accessToken":"tok-1",
			"user":{"id":"u1","role":"association_admin","first_name":"Ama","lastName":"Mensah","email":"ama@example.org","associationId":"as-1"},
			"cooperativeId":"co-1"
		}}`))
		assert.Equal(t, models.Identity{
			ID:            "u1",
			Role:          models.RoleAssociationAdmin,
			FirstName:     "Ama",
			LastName:      "Mensah",
			Email:         "ama@example.org",
			AssociationID: "as-1",
			CooperativeID: "co-1",
		}, identity)
		assert.Equal(t, models.Credential{Token: "tok-1", AssociationID: "as-1", CooperativeID: "co-1"}, cred)
	})

	t.Run("flat payload", func(t *testing.T) {
		identity, cred := SignIn(ParseString(`{"token":"tok-2","userId":7,"roles":["COOPERATIVE_ADMIN"],"cooperative_id":"co-9"}`))
		assert.Equal(t, "7", identity.ID)
		assert.Equal(t, models.RoleCooperativeAdmin, identity.Role)
		assert.Equal(t, "tok-2", cred.Token)
		assert.Equal(t, "co-9", cred.CooperativeID)
	})

	t.Run("empty payload", func(t *testing.T) {
		identity, cred := SignIn(ParseString(`{}`))
		assert.Equal(t, models.Identity{}, identity)
		require.True(t, cred.Empty())
	})
}

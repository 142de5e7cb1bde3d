package fakebackend

// Default bodies. Each one uses a different envelope or naming convention so
// a client that only handles one shape fails visibly.
const (
	defaultCooperativeDashboard = `{
  "data": {
    "summary": {
      "totalAssociations": 3,
      "totalMembers": "42",
      "loans": {"active": 7, "pending": 2, "amount": 15000.5},
      "totalSavingsCents": 1234500,
      "repaymentRatio": 0.95
    },
    "monthlyGrowth": [
      {"month": "Jan", "value": 10},
      {"label": "Feb", "count": 14},
      {"period": "Mar", "total": "18"}
    ]
  }
}`

	defaultAssociationDashboard = `{
  "total_members": 12,
  "active_loans": 3,
  "pending_loans": 1,
  "totalSavings": 5400,
  "repaymentRate": 88.5,
  "growth": [{"name": "Jan", "value": 4}]
}`

	defaultAssociations = `{
  "data": [
    {"id": "a-1", "name": "Umoja Growers", "location": "Nakuru", "status": "ACTIVE", "memberCount": 8},
    {"_id": "a-2", "associationName": "Tumaini Dairy", "region": "Eldoret", "members": [{}, {}, {}]},
    {"associationId": "a-3", "title": "Baraka Weavers", "member_count": "5", "state": "PENDING"}
  ]
}`

	defaultMembers = `{
  "members": [
    {"id": "m-1", "name": "Amina Yusuf", "role": "Treasurer", "loanStatus": "Active", "savings": 1200},
    {"_id": "m-2", "fullName": "Peter Otieno", "firstName": "Peter", "lastName": "Otieno", "savings": "350.75"},
    {"memberId": "m-3", "first_name": "Grace", "last_name": "Wanjiru", "memberRole": "Secretary", "loan_status": "Repaid", "joinedAt": "2024-02-01"},
    {}
  ]
}`

	defaultNotificationLog = `{
  "data": {
    "logs": [
      {"id": "n-1", "recipient": "Amina Yusuf", "channel": "SMS", "message": "Your loan was approved", "status": "DELIVERED", "sentAt": "2025-01-10T09:00:00Z"},
      {"_id": "n-2", "to": "+254700000001", "medium": "EMAIL", "subject": "Meeting", "body": "AGM on Friday", "deliveryStatus": "FAILED"},
      {"notificationId": "n-3", "text": "Savings reminder"}
    ]
  }
}`
)

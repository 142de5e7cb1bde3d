package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"coopconsole/internal/models"
	"coopconsole/internal/normalize"
	dErrors "coopconsole/pkg/domain-errors"
)

// Endpoint labels used in metrics, spans and logs.
const (
	EndpointSignIn               = "sign_in"
	EndpointCooperativeDashboard = "cooperative_dashboard"
	EndpointAssociationDashboard = "association_dashboard"
	EndpointAssociations         = "associations"
	EndpointMembers              = "members"
	EndpointNotificationLog      = "notification_log"
)

// Credentials is what the operator types on the sign-in form. Identifier is
// an email address or a phone number.
type Credentials struct {
	Identifier string
	Password   string
}

type signInBody struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Password    string `json:"password"`
}

// SignIn exchanges credentials for an identity and the credential to
// persist. Rejections by the backend come back as CodeBadCredentials; the
// session is never touched here.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (models.Identity, models.Credential, error) {
	id := strings.TrimSpace(creds.Identifier)
	if id == "" || creds.Password == "" {
		return models.Identity{}, models.Credential{}, dErrors.New(dErrors.CodeBadCredentials, "Enter your phone number or email and your password.")
	}
	body := signInBody{Password: creds.Password}
	if strings.Contains(id, "@") {
		body.Email = id
	} else {
		body.PhoneNumber = id
	}

	raw, err := c.do(ctx, call{
		endpoint: EndpointSignIn,
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     body,
	})
	if err != nil {
		c.metrics.IncSignIn(false)
		return models.Identity{}, models.Credential{}, signInError(err)
	}

	identity, credential := normalize.SignIn(raw)
	if credential.Token == "" {
		c.metrics.IncSignIn(false)
		return models.Identity{}, models.Credential{}, dErrors.New(dErrors.CodeInternal, "Sign-in response did not include a token.")
	}
	if !identity.Role.Valid() {
		c.metrics.IncSignIn(false)
		return models.Identity{}, models.Credential{}, dErrors.New(dErrors.CodeForbidden, "This account cannot use the admin console.")
	}
	c.metrics.IncSignIn(true)
	return identity, credential, nil
}

// CooperativeDashboard loads the cooperative-wide summary.
func (c *Client) CooperativeDashboard(ctx context.Context, cooperativeID string) (models.DashboardSummary, error) {
	if cooperativeID == "" {
		return models.DashboardSummary{}, missingScope("cooperative")
	}
	raw, err := c.get(ctx, EndpointCooperativeDashboard, "/cooperatives", cooperativeID, "dashboard")
	if err != nil {
		return models.DashboardSummary{}, err
	}
	return normalize.DashboardSummary(raw), nil
}

// AssociationDashboard loads the summary of one association.
func (c *Client) AssociationDashboard(ctx context.Context, associationID string) (models.DashboardSummary, error) {
	if associationID == "" {
		return models.DashboardSummary{}, missingScope("association")
	}
	raw, err := c.get(ctx, EndpointAssociationDashboard, "/associations", associationID, "dashboard")
	if err != nil {
		return models.DashboardSummary{}, err
	}
	return normalize.DashboardSummary(raw), nil
}

// Associations lists the associations of a cooperative.
func (c *Client) Associations(ctx context.Context, cooperativeID string) ([]models.Association, error) {
	if cooperativeID == "" {
		return nil, missingScope("cooperative")
	}
	raw, err := c.get(ctx, EndpointAssociations, "/cooperatives", cooperativeID, "associations")
	if err != nil {
		return nil, err
	}
	return normalize.Associations(raw), nil
}

// Members lists the members of an association.
func (c *Client) Members(ctx context.Context, associationID string) ([]models.Member, error) {
	if associationID == "" {
		return nil, missingScope("association")
	}
	raw, err := c.get(ctx, EndpointMembers, "/associations", associationID, "members")
	if err != nil {
		return nil, err
	}
	return normalize.Members(raw), nil
}

// NotificationLog lists notifications sent within the caller's tenant scope.
func (c *Client) NotificationLog(ctx context.Context) ([]models.NotificationLogEntry, error) {
	raw, err := c.get(ctx, EndpointNotificationLog, "/notifications", "logs")
	if err != nil {
		return nil, err
	}
	return normalize.NotificationLog(raw), nil
}

func (c *Client) get(ctx context.Context, endpoint string, segments ...string) (normalize.Raw, error) {
	return c.do(ctx, call{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     joinSegments(segments),
		auth:     true,
	})
}

// joinSegments escapes each path segment so ids cannot reshape the route.
func joinSegments(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func missingScope(kind string) error {
	return dErrors.New(dErrors.CodeForbidden, "Your account is not linked to a "+kind+".")
}

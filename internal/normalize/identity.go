package normalize

import "coopconsole/internal/models"

// Identity field priority. Earlier paths win. Token claims and sign-in
// responses both go through here.
var (
	identityID          = []string{"id", "_id", "userId", "user_id", "sub"}
	identityRole        = []string{"role", "userRole", "user_role", "userType", "roles.0"}
	identityFirstName   = []string{"firstName", "first_name", "given_name"}
	identityLastName    = []string{"lastName", "last_name", "family_name"}
	identityPhone       = []string{"phoneNumber", "phone_number", "phone"}
	identityEmail       = []string{"email", "emailAddress"}
	identityAssociation = []string{"associationId", "association_id", "association.id"}
	identityCooperative = []string{"cooperativeId", "cooperative_id", "cooperative.id"}

	signInToken = []string{"token", "accessToken", "access_token", "jwt"}
	signInUser  = []string{"user", "admin", "profile"}
)

// Identity normalizes a user record or token claims.
func Identity(r Raw) models.Identity {
	role, _ := r.String(identityRole...)
	return models.Identity{
		ID:            r.StringOr("", identityID...),
		Role:          ParseRole(role),
		FirstName:     r.StringOr("", identityFirstName...),
		LastName:      r.StringOr("", identityLastName...),
		PhoneNumber:   r.StringOr("", identityPhone...),
		Email:         r.StringOr("", identityEmail...),
		AssociationID: r.StringOr("", identityAssociation...),
		CooperativeID: r.StringOr("", identityCooperative...),
	}
}

// SignIn normalizes a sign-in response into the identity and the credential
// to persist. The user record may be nested under one of a few keys or be
// the payload itself; tenant ids fall back to the top level of the payload
// when the user record lacks them.
func SignIn(r Raw) (models.Identity, models.Credential) {
	r = Unwrap(r)
	user := r
	for _, key := range signInUser {
		if v := r.Get(key); v.IsObject() {
			user = v
			break
		}
	}
	identity := Identity(user)
	if identity.AssociationID == "" {
		identity.AssociationID = r.StringOr("", identityAssociation...)
	}
	if identity.CooperativeID == "" {
		identity.CooperativeID = r.StringOr("", identityCooperative...)
	}
	if identity.Role == models.RoleUnknown {
		role, _ := r.String(identityRole...)
		identity.Role = ParseRole(role)
	}
	credential := models.Credential{
		Token:         r.StringOr("", signInToken...),
		AssociationID: identity.AssociationID,
		CooperativeID: identity.CooperativeID,
	}
	return identity, credential
}

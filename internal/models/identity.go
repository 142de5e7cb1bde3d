package models

// Role is the closed set of operator roles the console serves.
type Role string

const (
	RoleCooperativeAdmin Role = "COOPERATIVE_ADMIN"
	RoleAssociationAdmin Role = "ASSOCIATION_ADMIN"
	RoleUnknown          Role = ""
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCooperativeAdmin || r == RoleAssociationAdmin
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "UNKNOWN"
	}
	return string(r)
}

// Identity is the authenticated operator. Exactly one is active at a time,
// owned by the session store; views only read copies of it.
type Identity struct {
	ID            string
	Role          Role
	FirstName     string
	LastName      string
	PhoneNumber   string
	Email         string
	AssociationID string
	CooperativeID string
}

// DisplayName joins first and last name, falling back to the email.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	case i.LastName != "":
		return i.LastName
	default:
		return i.Email
	}
}

// Credential is the durable half of a session: the opaque bearer token plus
// the tenant scope identifiers.
type Credential struct {
	Token         string
	AssociationID string
	CooperativeID string
}

// Empty reports whether the credential carries no token.
func (c Credential) Empty() bool {
	return c.Token == ""
}

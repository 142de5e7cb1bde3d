package normalize

import "coopconsole/internal/models"

// Association field priority. Earlier paths win.
var (
	associationID          = []string{"id", "_id", "associationId", "association_id"}
	associationName        = []string{"name", "associationName", "association_name", "title"}
	associationLocation    = []string{"location", "address", "region", "district"}
	associationStatus      = []string{"status", "state"}
	associationMemberCount = []string{"memberCount", "member_count", "totalMembers", "members.#"}
	associationCooperative = []string{"cooperativeId", "cooperative_id", "cooperative.id"}
	associationCreatedAt   = []string{"createdAt", "created_at", "dateCreated"}

	associationListKeys = []string{"associations", "items", "results"}
)

const DefaultAssociationStatus = "Unknown"

// Association normalizes one association record.
func Association(r Raw) models.Association {
	return models.Association{
		ID:            r.StringOr("", associationID...),
		Name:          r.StringOr("", associationName...),
		Location:      r.StringOr("", associationLocation...),
		Status:        r.StringOr(DefaultAssociationStatus, associationStatus...),
		MemberCount:   r.Int(associationMemberCount...),
		CooperativeID: r.StringOr("", associationCooperative...),
		CreatedAt:     r.StringOr("", associationCreatedAt...),
	}
}

// Associations normalizes an association list response.
func Associations(r Raw) []models.Association {
	items := Unwrap(r).List(associationListKeys...)
	out := make([]models.Association, 0, len(items))
	for _, it := range items {
		out = append(out, Association(it))
	}
	return out
}

// Package storage persists the console credential between runs.
//
// It is a plain key/value adapter with no business logic: the session store
// decides what is written and when.
package storage

// Key names one durable slot.
type Key string

const (
	KeyAuthToken     Key = "auth_token"
	KeyAssociationID Key = "association_id"
	KeyCooperativeID Key = "cooperative_id"
)

// CredentialKeys lists every key the session store owns.
var CredentialKeys = []Key{KeyAuthToken, KeyAssociationID, KeyCooperativeID}

// Store is durable key/value storage.
//
// Error Contract:
//   - Get returns ok=false with a nil error when the key is absent
//   - Get wraps sentinel.ErrCorrupt when the backing data cannot be decoded;
//     callers treat that as absent
//   - SetMany applies all values in one durable write
type Store interface {
	Get(key Key) (string, bool, error)
	Set(key Key, value string) error
	SetMany(values map[Key]string) error
	Delete(key Key) error
	Clear() error
}

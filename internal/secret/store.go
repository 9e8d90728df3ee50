// Package secret stores the passwords of bound databases outside the
// page database.
package secret

// SecretStore holds binding passwords. Get on a missing key returns
// nil, nil so callers can tell "no password" from a failed lookup.
type SecretStore interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

const connectionKeyPrefix = "db-connection:"

// ConnectionKey is the key a connection's password is stored under.
func ConnectionKey(connectionID string) string {
	return connectionKeyPrefix + connectionID
}

package identity

import "time"

// User represents a registered player. The user id doubles as the ledger
// account id; the ledger provisions the account lazily on first posting.
type User struct {
	ID           string
	Phone        string
	Role         string
	PINHash      []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials carried by register/login requests.
type Credentials struct {
	Phone string
	PIN   string
}

// Roles assigned to users. Operators may use the admin adjustment endpoint.
const (
	RolePlayer   = "player"
	RoleOperator = "operator"
)

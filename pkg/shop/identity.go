package shop

import "fmt"

type IdentityKind int

const (
	IdentityUser IdentityKind = iota + 1
	IdentitySession
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityUser:
		return "user"
	case IdentitySession:
		return "session"
	default:
		return "unknown"
	}
}

// Identity is the owner of a cart: an authenticated user or an anonymous
// session. A session identity with an empty Value has not been minted yet.
type Identity struct {
	Kind  IdentityKind
	Value string
}

func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, Value: userID}
}

func SessionIdentity(token string) Identity {
	return Identity{Kind: IdentitySession, Value: token}
}

func (id Identity) IsUser() bool    { return id.Kind == IdentityUser }
func (id Identity) IsSession() bool { return id.Kind == IdentitySession }

func (id Identity) String() string {
	return fmt.Sprintf("%s:%s", id.Kind, id.Value)
}

package domain

import (
	"sync"

	"github.com/google/uuid"
)

// EscrowTag seeds the escrow account derivation. Changing it moves every
// accumulated due to a different account, so it is fixed for the lifetime of
// a deployment.
const EscrowTag = "ClubMngr"

// escrowNamespace scopes the name-based UUID so the tag cannot collide with
// identities derived by other subsystems from the same string.
var escrowNamespace = uuid.MustParse("6f1d3c5e-2b8a-5c4f-9e0d-7a1b2c3d4e5f")

var (
	escrowOnce sync.Once
	escrowID   AccountID
)

// EscrowAccountID returns the pseudo-account that collects membership dues.
// It is a pure function of EscrowTag and is stable across restarts.
func EscrowAccountID() AccountID {
	escrowOnce.Do(func() {
		escrowID = DeriveAccountID("escrow", EscrowTag)
	})
	return escrowID
}

// DeriveAccountID builds a deterministic account identity from a prefix and a
// seed tag. No key material is involved.
func DeriveAccountID(prefix, tag string) AccountID {
	return AccountID(prefix + ":" + uuid.NewSHA1(escrowNamespace, []byte(tag)).String())
}

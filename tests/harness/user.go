package harness

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pvmlabs/ballot/core"
)

// User is a test account: an address and the nonce of its next transaction.
type User struct {
	addr  common.Address
	nonce uint64
}

// NewUser returns a user whose first transaction carries the FakeVM genesis
// nonce.
func NewUser(addr common.Address) *User {
	return &User{addr: addr, nonce: core.FakeNonce}
}

// Address returns the user's account.
func (u *User) Address() common.Address { return u.addr }

// Nonce returns the nonce for the next transaction and advances the counter.
func (u *User) Nonce() uint64 {
	n := u.nonce
	u.nonce++
	return n
}

// Peek returns the next nonce without consuming it.
func (u *User) Peek() uint64 { return u.nonce }

// Owner is the user that deployed a Ballot. It shares the nonce counter of
// the wrapped user.
type Owner struct {
	*User
}

// NewOwner wraps u.
func NewOwner(u *User) Owner { return Owner{User: u} }

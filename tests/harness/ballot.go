// Package harness drives a deployed Ballot contract through an executor.
// Every unexpected executor result aborts the calling test.
package harness

import (
	"encoding/hex"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/pvmlabs/ballot/contracts/ballot"
	"github.com/pvmlabs/ballot/core/vm"
	"github.com/pvmlabs/ballot/pvm"
)

const (
	// DefaultBinaryPath is where the prebuilt Ballot artifact is read from,
	// relative to the test's working directory.
	DefaultBinaryPath = "./build/ballot"

	// BinaryPathEnv overrides DefaultBinaryPath.
	BinaryPathEnv = "BALLOT_BINARY_PATH"

	GasLimit uint64 = 1_000_000
	GasPrice uint64 = 1
)

// Result is the announced outcome of a ballot.
type Result int

const (
	Approved Result = iota
	Failed
)

func (r Result) String() string {
	if r == Approved {
		return "approved"
	}
	return "failed"
}

// BinaryPath returns the artifact path in effect.
func BinaryPath() string {
	if p := os.Getenv(BinaryPathEnv); p != "" {
		return p
	}
	return DefaultBinaryPath
}

// Ballot is a deployed Ballot contract.
type Ballot struct {
	vm   vm.Executor
	addr common.Address
}

// Deploy reads the Ballot binary, deploys it from owner and makes owner the
// ballot owner.
func Deploy(t testing.TB, exec vm.Executor, owner Owner) *Ballot {
	t.Helper()
	path := BinaryPath()
	code, artifact, err := pvm.ReadArtifact(path)
	if err != nil {
		t.Fatalf("failed to read ballot binary: %v", err)
	}
	tx := &vm.Transaction{
		From:     owner.Address(),
		Value:    new(uint256.Int),
		Nonce:    owner.Nonce(),
		GasLimit: GasLimit,
		GasPrice: uint256.NewInt(GasPrice),
		Input:    code,
		IType:    vm.Native,
	}
	res, err := exec.Exec(vm.DefaultContext(), tx)
	if err != nil {
		t.Fatalf("deploy %s failed: %v", path, err)
	}
	created, ok := res.(*vm.CreateResult)
	if !ok {
		t.Fatalf("deploy returned %T, want *vm.CreateResult", res)
	}
	log.Debug("Deployed ballot", "program", artifact.Name, "address", created.Address, "engine", exec.Engine())

	b := &Ballot{vm: exec, addr: created.Address}
	b.Call(t, owner.User, ballot.MethodSetOwner)
	return b
}

// Address returns the contract address.
func (b *Ballot) Address() common.Address { return b.addr }

// TryCall submits method(args...) from u and returns the output, or the
// executor error. The user's nonce is consumed either way.
func (b *Ballot) TryCall(u *User, method string, args ...string) ([]byte, error) {
	tx := &vm.Transaction{
		From:     u.Address(),
		To:       &b.addr,
		Value:    new(uint256.Int),
		Nonce:    u.Nonce(),
		GasLimit: GasLimit,
		GasPrice: uint256.NewInt(GasPrice),
		Input:    pvm.CombineStrings(append([]string{method}, args...)...),
		IType:    vm.Native,
	}
	res, err := b.vm.Exec(vm.DefaultContext(), tx)
	if err != nil {
		return nil, err
	}
	normal, ok := res.(*vm.NormalResult)
	if !ok {
		return nil, &unexpectedResult{res}
	}
	return normal.Output, nil
}

// Call is TryCall failing the test on error.
func (b *Ballot) Call(t testing.TB, u *User, method string, args ...string) []byte {
	t.Helper()
	out, err := b.TryCall(u, method, args...)
	if err != nil {
		t.Fatalf("%s failed: %s", method, ballot.Reason(err))
	}
	return out
}

// ExpectCode calls method and requires it to fail with the given Ballot exit
// code.
func (b *Ballot) ExpectCode(t testing.TB, code uint64, u *User, method string, args ...string) {
	t.Helper()
	_, err := b.TryCall(u, method, args...)
	if err == nil {
		t.Fatalf("%s succeeded, want %q", method, ballot.CodeText(code))
	}
	got, ok := pvm.ExitCode(err)
	if !ok {
		t.Fatalf("%s failed with %v, want %q", method, err, ballot.CodeText(code))
	}
	if got != code {
		t.Fatalf("%s exited with %q, want %q", method, ballot.CodeText(got), ballot.CodeText(code))
	}
}

func (b *Ballot) GetOwner(t testing.TB, u *User) common.Address {
	t.Helper()
	out := b.Call(t, u, ballot.MethodGetOwner)
	if len(out) != common.AddressLength {
		t.Fatalf("get_owner returned %d bytes", len(out))
	}
	return common.BytesToAddress(out)
}

func (b *Ballot) GetTopic(t testing.TB, u *User) string {
	t.Helper()
	return string(b.Call(t, u, ballot.MethodGetTopic))
}

func (b *Ballot) SetTopic(t testing.TB, owner Owner, topic string) {
	t.Helper()
	b.Call(t, owner.User, ballot.MethodSetTopic, topic)
}

// IsVoter reports whether u may vote.
func (b *Ballot) IsVoter(t testing.TB, u *User) bool {
	t.Helper()
	out := b.Call(t, u, ballot.MethodIsVoter)
	if len(out) != 1 {
		t.Fatalf("is_voter returned %x", out)
	}
	switch out[0] {
	case ballot.HasVoterRight:
		return true
	case ballot.NoVoterRight:
		return false
	}
	t.Fatalf("is_voter returned %x", out)
	return false
}

// AuthorizeVoteRight grants voter the right to vote.
func (b *Ballot) AuthorizeVoteRight(t testing.TB, owner Owner, voter *User) {
	t.Helper()
	b.Call(t, owner.User, ballot.MethodAuthorizeVoteRight, hex.EncodeToString(voter.Address().Bytes()))
}

func (b *Ballot) StartVote(t testing.TB, owner Owner) {
	t.Helper()
	b.Call(t, owner.User, ballot.MethodStartVote)
}

func (b *Ballot) EndVote(t testing.TB, owner Owner) {
	t.Helper()
	b.Call(t, owner.User, ballot.MethodEndVote)
}

// Vote casts a yea vote from u.
func (b *Ballot) Vote(t testing.TB, u *User) {
	t.Helper()
	b.VoteWith(t, u, "yea")
}

// VoteWith casts the given vote ("yea", "nay", "1" or "2") from u.
func (b *Ballot) VoteWith(t testing.TB, u *User, value string) {
	t.Helper()
	b.Call(t, u, ballot.MethodVote, value)
}

func (b *Ballot) AnnResult(t testing.TB, u *User) Result {
	t.Helper()
	out := b.Call(t, u, ballot.MethodAnnResult)
	if len(out) != 1 {
		t.Fatalf("ann_result returned %x", out)
	}
	switch out[0] {
	case ballot.ResultApproved:
		return Approved
	case ballot.ResultFailed:
		return Failed
	}
	t.Fatalf("ann_result returned %x", out)
	return Failed
}

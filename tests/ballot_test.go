package tests

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pvmlabs/ballot/contracts/ballot"
	"github.com/pvmlabs/ballot/core"
	"github.com/pvmlabs/ballot/pvm"
	"github.com/pvmlabs/ballot/tests/harness"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))
}

type fixture struct {
	fake   *core.FakeVM
	owner  harness.Owner
	voter  *harness.User
	ballot *harness.Ballot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := core.NewFakeVM()
	owner := harness.NewOwner(harness.NewUser(fake.Account1))
	return &fixture{
		fake:   fake,
		owner:  owner,
		voter:  harness.NewUser(fake.Account2),
		ballot: harness.Deploy(t, fake.Executor, owner),
	}
}

func TestBallot(t *testing.T) {
	f := newFixture(t)
	b, owner, voter := f.ballot, f.owner, f.voter

	require.Equal(t, owner.Address(), b.GetOwner(t, owner.User))

	b.SetTopic(t, owner, "Moon ?")
	require.Equal(t, "Moon ?", b.GetTopic(t, owner.User))

	require.False(t, b.IsVoter(t, voter))
	b.AuthorizeVoteRight(t, owner, voter)
	require.True(t, b.IsVoter(t, voter))

	b.StartVote(t, owner)
	b.Vote(t, voter)
	b.EndVote(t, owner)
	require.Equal(t, harness.Approved, b.AnnResult(t, owner.User))
}

func TestBallotNayMajority(t *testing.T) {
	f := newFixture(t)
	b, owner, voter := f.ballot, f.owner, f.voter

	b.SetTopic(t, owner, "Mars ?")
	b.AuthorizeVoteRight(t, owner, voter)
	b.AuthorizeVoteRight(t, owner, owner.User)
	b.StartVote(t, owner)
	b.VoteWith(t, voter, "nay")
	b.VoteWith(t, owner.User, "1")
	b.EndVote(t, owner)

	// One yea out of two voters is not a majority.
	require.Equal(t, harness.Failed, b.AnnResult(t, voter))
}

func TestBallotPermissions(t *testing.T) {
	f := newFixture(t)
	b, owner, voter := f.ballot, f.owner, f.voter

	b.ExpectCode(t, ballot.ErrOwnerAlreadySet, voter, ballot.MethodSetOwner)
	b.ExpectCode(t, ballot.ErrTopicNotSet, voter, ballot.MethodGetTopic)
	b.ExpectCode(t, ballot.ErrNoPermission, voter, ballot.MethodSetTopic, "Moon ?")
	b.ExpectCode(t, ballot.ErrExceedMaxLen, owner.User, ballot.MethodSetTopic, strings.Repeat("?", ballot.MaxTopicLen+1))
	b.ExpectCode(t, ballot.ErrNoPermission, voter, ballot.MethodAuthorizeVoteRight, "00")
	b.ExpectCode(t, ballot.ErrInvalidAddress, owner.User, ballot.MethodAuthorizeVoteRight, "0x1234")
	b.ExpectCode(t, ballot.ErrNoPermission, voter, ballot.MethodStartVote)
	b.ExpectCode(t, ballot.ErrMethodArgNum, owner.User, ballot.MethodStartVote, "now")
	b.ExpectCode(t, ballot.ErrUnknownMethod, owner.User, "transfer")

	b.SetTopic(t, owner, "Moon ?")
	b.ExpectCode(t, ballot.ErrTopicAlreadySet, owner.User, ballot.MethodSetTopic, "Moon !")
	require.Equal(t, "Moon ?", b.GetTopic(t, voter))
}

func TestBallotVoting(t *testing.T) {
	f := newFixture(t)
	b, owner, voter := f.ballot, f.owner, f.voter

	b.AuthorizeVoteRight(t, owner, voter)
	b.ExpectCode(t, ballot.ErrVoteNotStartedYet, voter, ballot.MethodVote, "yea")
	b.ExpectCode(t, ballot.ErrVoteNotEndYet, voter, ballot.MethodAnnResult)

	b.StartVote(t, owner)
	b.ExpectCode(t, ballot.ErrVoteAlreadyStartedOrEnded, owner.User, ballot.MethodStartVote)
	b.ExpectCode(t, ballot.ErrInvalidVoteValue, voter, ballot.MethodVote, "abstain")
	b.ExpectCode(t, ballot.ErrNoPermission, owner.User, ballot.MethodVote, "yea")
	b.Vote(t, voter)
	b.ExpectCode(t, ballot.ErrAlreadyVoted, voter, ballot.MethodVote, "nay")

	b.EndVote(t, owner)
	b.ExpectCode(t, ballot.ErrVoteNotStartedYet, owner.User, ballot.MethodEndVote)
	require.Equal(t, harness.Approved, b.AnnResult(t, voter))
}

func TestBallotFailedCallsConsumeNonce(t *testing.T) {
	f := newFixture(t)
	b, voter := f.ballot, f.voter
	sdb := f.fake.Executor.StateDB()

	b.ExpectCode(t, ballot.ErrNoPermission, voter, ballot.MethodSetTopic, "Moon ?")
	b.ExpectCode(t, ballot.ErrNoPermission, voter, ballot.MethodStartVote)
	require.Equal(t, voter.Peek(), sdb.GetNonce(voter.Address()))
	require.Equal(t, core.FakeNonce+2, voter.Peek())

	// A stale nonce is rejected without consuming anything.
	stale := harness.NewUser(voter.Address())
	_, err := b.TryCall(stale, ballot.MethodIsVoter)
	require.ErrorIs(t, err, core.ErrNonceTooLow)
	require.Equal(t, voter.Peek(), sdb.GetNonce(voter.Address()))
}

func TestBallotBinaryPathOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ballot.bin")
	require.NoError(t, pvm.WriteArtifact(path, pvm.NewArtifact(ballot.Name, []byte("v2"))))
	t.Setenv(harness.BinaryPathEnv, path)
	require.Equal(t, path, harness.BinaryPath())

	f := newFixture(t)
	code := f.fake.Executor.StateDB().GetCode(f.ballot.Address())
	artifact, err := pvm.DecodeArtifact(code)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), artifact.Payload)
	require.Equal(t, f.owner.Address(), f.ballot.GetOwner(t, f.voter))
}

func TestBallotBinaryFile(t *testing.T) {
	_, artifact, err := pvm.ReadArtifact(harness.DefaultBinaryPath)
	require.NoError(t, err)
	require.Equal(t, ballot.Name, artifact.Name)
}

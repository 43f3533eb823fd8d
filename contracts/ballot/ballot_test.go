package ballot

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/pvmlabs/ballot/pvm"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	voterA   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	voterB   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	outsider = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

// testBallot runs the program directly against a fresh contract account.
type testBallot struct {
	t  *testing.T
	db *state.StateDB
	at common.Address
}

func newTestBallot(t *testing.T) *testBallot {
	t.Helper()
	db, err := state.New(common.Hash{}, state.NewDatabaseForTesting())
	require.NoError(t, err)
	at := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	db.CreateAccount(at)

	b := &testBallot{t: t, db: db, at: at}
	_, err = b.run(owner)
	require.NoError(t, err, "constructor")
	return b
}

func (b *testBallot) run(from common.Address, argv ...string) ([]byte, error) {
	args := make([][]byte, len(argv))
	for i, a := range argv {
		args[i] = []byte(a)
	}
	host := pvm.NewHost(pvm.NewStorage(b.db, b.at), from, nil, 1, 10_000_000)
	return pvm.Run(Program{}, host, args)
}

func (b *testBallot) mustRun(from common.Address, argv ...string) []byte {
	b.t.Helper()
	ret, err := b.run(from, argv...)
	if err != nil {
		b.t.Fatalf("%v failed: %v", argv, err)
	}
	return ret
}

func (b *testBallot) expectCode(code uint64, from common.Address, argv ...string) {
	b.t.Helper()
	_, err := b.run(from, argv...)
	got, ok := pvm.ExitCode(err)
	if !ok {
		b.t.Fatalf("%v: expected exit code %d (%s), got %v", argv, code, CodeText(code), err)
	}
	require.Equal(b.t, code, got, "%v: got %s", argv, CodeText(got))
}

func addrArg(addr common.Address) string {
	return hex.EncodeToString(addr.Bytes())
}

func TestBallotOwner(t *testing.T) {
	b := newTestBallot(t)

	b.expectCode(ErrOwnerNotSet, owner, MethodGetOwner)
	b.expectCode(ErrOwnerNotSet, owner, MethodGetTopic)
	b.expectCode(ErrMethodArgNum, owner, MethodSetOwner, "extra")

	b.mustRun(owner, MethodSetOwner)
	require.Equal(t, owner.Bytes(), b.mustRun(voterA, MethodGetOwner))

	b.expectCode(ErrOwnerAlreadySet, voterA, MethodSetOwner)
	require.Equal(t, owner.Bytes(), b.mustRun(owner, MethodGetOwner))
}

func TestBallotTopic(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)

	b.expectCode(ErrTopicNotSet, owner, MethodGetTopic)
	b.expectCode(ErrNoPermission, outsider, MethodSetTopic, "Moon ?")
	b.expectCode(ErrExceedMaxLen, owner, MethodSetTopic, strings.Repeat("x", MaxTopicLen+1))
	b.expectCode(ErrEmptyTopic, owner, MethodSetTopic, "")
	b.expectCode(ErrMethodArgNum, owner, MethodSetTopic)

	b.mustRun(owner, MethodSetTopic, "Moon ?")
	require.Equal(t, []byte("Moon ?"), b.mustRun(outsider, MethodGetTopic))
	b.expectCode(ErrTopicAlreadySet, owner, MethodSetTopic, "Mars ?")
}

func TestBallotTopicMaxLen(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)

	topic := strings.Repeat("t", MaxTopicLen)
	b.mustRun(owner, MethodSetTopic, topic)
	require.Equal(t, []byte(topic), b.mustRun(owner, MethodGetTopic))
}

func TestBallotAuthorize(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)

	require.Equal(t, []byte{NoVoterRight}, b.mustRun(voterA, MethodIsVoter))

	b.expectCode(ErrNoPermission, voterA, MethodAuthorizeVoteRight, addrArg(voterA))
	b.expectCode(ErrInvalidAddress, owner, MethodAuthorizeVoteRight, "0x"+addrArg(voterA))
	b.expectCode(ErrInvalidAddress, owner, MethodAuthorizeVoteRight, strings.Repeat("zz", 20))
	b.expectCode(ErrInvalidAddress, owner, MethodAuthorizeVoteRight, addrArg(voterA)[:38])

	b.mustRun(owner, MethodAuthorizeVoteRight, addrArg(voterA))
	require.Equal(t, []byte{HasVoterRight}, b.mustRun(voterA, MethodIsVoter))
	require.Equal(t, []byte{NoVoterRight}, b.mustRun(voterB, MethodIsVoter))

	// Upper case hex names the same voter and is not counted twice.
	b.mustRun(owner, MethodAuthorizeVoteRight, strings.ToUpper(addrArg(voterA)))
	total, err := (&contract{env: pvm.NewHost(pvm.NewStorage(b.db, b.at), owner, nil, 1, 1_000_000)}).loadCounter(totalVoterKey)
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
}

func TestBallotMaxVoters(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)

	// Fill the voter count up to the cap.
	fill := pvm.ProgramFunc(func(env pvm.Env, _ [][]byte) error {
		return (&contract{env: env}).saveCounter(totalVoterKey, MaxVoterCount)
	})
	_, err := pvm.Run(fill, pvm.NewHost(pvm.NewStorage(b.db, b.at), owner, nil, 1, 1_000_000), nil)
	require.NoError(t, err)

	b.expectCode(ErrMaxVoterReached, owner, MethodAuthorizeVoteRight, addrArg(voterA))
	require.Equal(t, []byte{NoVoterRight}, b.mustRun(voterA, MethodIsVoter))

	total, err := (&contract{env: pvm.NewHost(pvm.NewStorage(b.db, b.at), owner, nil, 1, 1_000_000)}).loadCounter(totalVoterKey)
	require.NoError(t, err)
	require.Equal(t, uint64(MaxVoterCount), total)
}

func TestBallotPhases(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)
	b.mustRun(owner, MethodAuthorizeVoteRight, addrArg(voterA))

	b.expectCode(ErrVoteNotStartedYet, voterA, MethodVote, "yea")
	b.expectCode(ErrVoteNotStartedYet, owner, MethodEndVote)
	b.expectCode(ErrVoteNotEndYet, owner, MethodAnnResult)
	b.expectCode(ErrNoPermission, voterA, MethodStartVote)

	b.mustRun(owner, MethodStartVote)
	b.expectCode(ErrVoteAlreadyStartedOrEnded, owner, MethodStartVote)
	b.expectCode(ErrVoteNotEndYet, owner, MethodAnnResult)
	b.expectCode(ErrNoPermission, voterA, MethodEndVote)

	b.mustRun(owner, MethodEndVote)
	b.expectCode(ErrVoteAlreadyStartedOrEnded, owner, MethodStartVote)
	b.expectCode(ErrVoteNotStartedYet, owner, MethodEndVote)
	b.expectCode(ErrVoteNotStartedYet, voterA, MethodVote, "yea")
}

func TestBallotVote(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)
	b.mustRun(owner, MethodSetTopic, "Moon ?")
	b.mustRun(owner, MethodAuthorizeVoteRight, addrArg(voterA))
	b.mustRun(owner, MethodStartVote)

	b.expectCode(ErrNoPermission, outsider, MethodVote, "yea")
	b.expectCode(ErrInvalidVoteValue, voterA, MethodVote, "maybe")
	b.expectCode(ErrMethodArgNum, voterA, MethodVote)

	b.mustRun(voterA, MethodVote, "yea")
	b.expectCode(ErrAlreadyVoted, voterA, MethodVote, "nay")

	b.mustRun(owner, MethodEndVote)
	require.Equal(t, []byte{ResultApproved}, b.mustRun(outsider, MethodAnnResult))
}

func TestBallotResult(t *testing.T) {
	tests := []struct {
		name  string
		votes []string // one per voter, "" abstains
		want  byte
	}{
		{"no voters", nil, ResultFailed},
		{"single yea", []string{"yea"}, ResultApproved},
		{"single nay", []string{"nay"}, ResultFailed},
		{"abstain", []string{""}, ResultFailed},
		{"tie", []string{"1", "2"}, ResultFailed},
		{"majority", []string{"yea", "1", "nay"}, ResultApproved},
		{"half with abstention", []string{"yea", ""}, ResultFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBallot(t)
			b.mustRun(owner, MethodSetOwner)

			voters := make([]common.Address, len(tt.votes))
			for i := range tt.votes {
				voters[i] = common.BytesToAddress([]byte{0xee, byte(i + 1)})
				b.mustRun(owner, MethodAuthorizeVoteRight, addrArg(voters[i]))
			}
			b.mustRun(owner, MethodStartVote)
			for i, v := range tt.votes {
				if v != "" {
					b.mustRun(voters[i], MethodVote, v)
				}
			}
			b.mustRun(owner, MethodEndVote)
			require.Equal(t, []byte{tt.want}, b.mustRun(owner, MethodAnnResult))
		})
	}
}

func TestBallotUnknownMethod(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)
	b.expectCode(ErrUnknownMethod, owner, "self_destruct")
}

func TestBallotFailedCallKeepsState(t *testing.T) {
	b := newTestBallot(t)
	b.mustRun(owner, MethodSetOwner)
	b.mustRun(owner, MethodAuthorizeVoteRight, addrArg(voterA))
	b.mustRun(owner, MethodStartVote)
	b.mustRun(voterA, MethodVote, "nay")

	b.expectCode(ErrAlreadyVoted, voterA, MethodVote, "yea")
	b.mustRun(owner, MethodEndVote)
	require.Equal(t, []byte{ResultFailed}, b.mustRun(owner, MethodAnnResult))
}

func TestParseVote(t *testing.T) {
	for in, want := range map[string]byte{"1": VoteYea, "yea": VoteYea, "YEA": VoteYea, "2": VoteNay, "nay": VoteNay} {
		got, ok := ParseVote([]byte(in))
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "3", "yes", "no", " yea"} {
		if _, ok := ParseVote([]byte(in)); ok {
			t.Fatalf("ParseVote(%q) accepted", in)
		}
	}
}

func TestCodeText(t *testing.T) {
	require.Equal(t, "already voted", CodeText(ErrAlreadyVoted))
	require.Equal(t, "code 999", CodeText(999))
	require.Equal(t, "owner not set", Reason(pvm.Exit(ErrOwnerNotSet)))
}

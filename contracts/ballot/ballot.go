// Package ballot implements the Ballot voting contract as a native pvm
// program.
//
// The owner, set once right after deployment, configures a topic and
// authorizes voters. Voting runs through three phases: Prepare, Started and
// End. Once ended, the result is Approved when more than half of the
// authorized voters voted yea.
package ballot

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pvmlabs/ballot/pvm"
)

// Name is the program name Ballot artifacts refer to.
const Name = "ballot"

func init() {
	pvm.Register(Name, Program{})
}

// Method names.
const (
	MethodSetOwner           = "set_owner"
	MethodGetOwner           = "get_owner"
	MethodGetTopic           = "get_topic"
	MethodSetTopic           = "set_topic"
	MethodAuthorizeVoteRight = "authorize_vote_right"
	MethodIsVoter            = "is_voter"
	MethodStartVote          = "start_vote"
	MethodEndVote            = "end_vote"
	MethodVote               = "vote"
	MethodAnnResult          = "ann_result"
)

// Storage keys. Voter records are keyed by the raw 20-byte address.
var (
	ownerKey      = []byte("owner_key")
	topicKey      = []byte("topic_key")
	stateKey      = []byte("state_key")
	totalVoterKey = []byte("total_voter")
	yeaCountKey   = []byte("yea_count_key")
)

const (
	// MaxTopicLen is the longest topic accepted, in bytes.
	MaxTopicLen = 100
	// MaxVoterCount caps the number of authorized voters.
	MaxVoterCount = 1 << 30
)

// Phase is the voting phase.
type Phase byte

const (
	Prepare Phase = iota
	Started
	End
)

// Bytes returned by is_voter.
const (
	HasVoterRight byte = 1
	NoVoterRight  byte = 2
)

// Vote values as recorded in a voter record.
const (
	VoteNone byte = 0
	VoteYea  byte = 1
	VoteNay  byte = 2
)

// Bytes returned by ann_result.
const (
	ResultApproved byte = 1
	ResultFailed   byte = 2
)

// Program is the Ballot contract.
type Program struct{}

// Run implements pvm.Program.
func (Program) Run(env pvm.Env, argv [][]byte) error {
	// Deployment carries no method.
	if len(argv) == 0 {
		return nil
	}
	method, args := string(argv[0]), argv[1:]

	owner, err := env.Load(ownerKey)
	if err != nil {
		return err
	}
	switch method {
	case MethodSetOwner:
		if len(args) != 0 {
			return pvm.Exit(ErrMethodArgNum)
		}
		if owner != nil {
			return pvm.Exit(ErrOwnerAlreadySet)
		}
		return env.Save(ownerKey, env.Caller().Bytes())

	case MethodGetOwner:
		if len(args) != 0 {
			return pvm.Exit(ErrMethodArgNum)
		}
		if owner == nil {
			return pvm.Exit(ErrOwnerNotSet)
		}
		env.Ret(owner)
		return nil
	}

	// Everything else needs an owner.
	if owner == nil {
		env.Debug("no owner")
		return pvm.Exit(ErrOwnerNotSet)
	}
	c := &contract{env: env, owner: common.BytesToAddress(owner)}

	switch method {
	case MethodGetTopic:
		return c.withArgs(args, 0, c.getTopic)
	case MethodSetTopic:
		return c.withArgs(args, 1, c.setTopic)
	case MethodAuthorizeVoteRight:
		return c.withArgs(args, 1, c.authorizeVoteRight)
	case MethodIsVoter:
		return c.withArgs(args, 0, c.isVoter)
	case MethodStartVote:
		return c.withArgs(args, 0, c.startVote)
	case MethodEndVote:
		return c.withArgs(args, 0, c.endVote)
	case MethodVote:
		return c.withArgs(args, 1, c.vote)
	case MethodAnnResult:
		return c.withArgs(args, 0, c.annResult)
	}
	return pvm.Exit(ErrUnknownMethod)
}

// contract is one invocation of a Ballot with an owner.
type contract struct {
	env   pvm.Env
	owner common.Address
}

func (c *contract) withArgs(args [][]byte, n int, fn func([][]byte) error) error {
	if len(args) != n {
		return pvm.Exit(ErrMethodArgNum)
	}
	return fn(args)
}

func (c *contract) onlyOwner() error {
	if c.env.Caller() != c.owner {
		return pvm.Exit(ErrNoPermission)
	}
	return nil
}

func (c *contract) getTopic([][]byte) error {
	topic, err := c.env.Load(topicKey)
	if err != nil {
		return err
	}
	if len(topic) == 0 {
		return pvm.Exit(ErrTopicNotSet)
	}
	c.env.Ret(topic)
	return nil
}

func (c *contract) setTopic(args [][]byte) error {
	topic, err := c.env.Load(topicKey)
	if err != nil {
		return err
	}
	if len(topic) != 0 {
		return pvm.Exit(ErrTopicAlreadySet)
	}
	if err := c.onlyOwner(); err != nil {
		return err
	}
	if len(args[0]) > MaxTopicLen {
		return pvm.Exit(ErrExceedMaxLen)
	}
	// An empty topic would read back as unset.
	if len(args[0]) == 0 {
		return pvm.Exit(ErrEmptyTopic)
	}
	return c.env.Save(topicKey, args[0])
}

func (c *contract) authorizeVoteRight(args [][]byte) error {
	if err := c.onlyOwner(); err != nil {
		return err
	}
	total, err := c.loadCounter(totalVoterKey)
	if err != nil {
		return err
	}
	if total >= MaxVoterCount {
		return pvm.Exit(ErrMaxVoterReached)
	}
	// The voter address is passed hex encoded, without prefix.
	if len(args[0]) != 2*common.AddressLength {
		return pvm.Exit(ErrInvalidAddress)
	}
	raw := make([]byte, common.AddressLength)
	if _, err := hex.Decode(raw, args[0]); err != nil {
		return pvm.Exit(ErrInvalidAddress)
	}
	voter, err := c.loadVoter(raw)
	if err != nil {
		return err
	}
	if voter[0] == HasVoterRight {
		return nil
	}
	if err := c.env.Save(raw, []byte{HasVoterRight, VoteNone}); err != nil {
		return err
	}
	return c.saveCounter(totalVoterKey, total+1)
}

func (c *contract) isVoter([][]byte) error {
	voter, err := c.loadVoter(c.env.Caller().Bytes())
	if err != nil {
		return err
	}
	if voter[0] == HasVoterRight {
		c.env.Ret([]byte{HasVoterRight})
	} else {
		c.env.Ret([]byte{NoVoterRight})
	}
	return nil
}

func (c *contract) startVote([][]byte) error {
	phase, err := c.phase()
	if err != nil {
		return err
	}
	if phase != Prepare {
		return pvm.Exit(ErrVoteAlreadyStartedOrEnded)
	}
	if err := c.onlyOwner(); err != nil {
		return err
	}
	return c.env.Save(stateKey, []byte{byte(Started)})
}

func (c *contract) endVote([][]byte) error {
	phase, err := c.phase()
	if err != nil {
		return err
	}
	if phase != Started {
		return pvm.Exit(ErrVoteNotStartedYet)
	}
	if err := c.onlyOwner(); err != nil {
		return err
	}
	return c.env.Save(stateKey, []byte{byte(End)})
}

func (c *contract) vote(args [][]byte) error {
	phase, err := c.phase()
	if err != nil {
		return err
	}
	if phase != Started {
		return pvm.Exit(ErrVoteNotStartedYet)
	}
	value, ok := ParseVote(args[0])
	if !ok {
		return pvm.Exit(ErrInvalidVoteValue)
	}
	caller := c.env.Caller().Bytes()
	voter, err := c.loadVoter(caller)
	if err != nil {
		return err
	}
	if voter[0] != HasVoterRight {
		return pvm.Exit(ErrNoPermission)
	}
	if voter[1] != VoteNone {
		return pvm.Exit(ErrAlreadyVoted)
	}
	if err := c.env.Save(caller, []byte{HasVoterRight, value}); err != nil {
		return err
	}
	if value != VoteYea {
		return nil
	}
	yea, err := c.loadCounter(yeaCountKey)
	if err != nil {
		return err
	}
	return c.saveCounter(yeaCountKey, yea+1)
}

func (c *contract) annResult([][]byte) error {
	phase, err := c.phase()
	if err != nil {
		return err
	}
	if phase != End {
		return pvm.Exit(ErrVoteNotEndYet)
	}
	total, err := c.loadCounter(totalVoterKey)
	if err != nil {
		return err
	}
	yea, err := c.loadCounter(yeaCountKey)
	if err != nil {
		return err
	}
	if yea > total/2 {
		c.env.Ret([]byte{ResultApproved})
	} else {
		c.env.Ret([]byte{ResultFailed})
	}
	return nil
}

// ParseVote maps a vote argument to its recorded value. Both the numeric and
// the spelled out forms are accepted.
func ParseVote(arg []byte) (byte, bool) {
	switch {
	case bytes.Equal(arg, []byte("1")), bytes.EqualFold(arg, []byte("yea")):
		return VoteYea, true
	case bytes.Equal(arg, []byte("2")), bytes.EqualFold(arg, []byte("nay")):
		return VoteNay, true
	}
	return VoteNone, false
}

func (c *contract) phase() (Phase, error) {
	raw, err := c.env.Load(stateKey)
	if err != nil || len(raw) == 0 {
		return Prepare, err
	}
	return Phase(raw[0]), nil
}

// loadVoter returns the two byte voter record, zeroed when absent.
func (c *contract) loadVoter(addr []byte) ([2]byte, error) {
	var rec [2]byte
	raw, err := c.env.Load(addr)
	if err != nil {
		return rec, err
	}
	copy(rec[:], raw)
	return rec, nil
}

// Counters are stored as 8 byte little-endian integers.
func (c *contract) loadCounter(key []byte) (uint64, error) {
	raw, err := c.env.Load(key)
	if err != nil || len(raw) == 0 {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], raw)
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (c *contract) saveCounter(key []byte, v uint64) error {
	return c.env.Save(key, binary.LittleEndian.AppendUint64(nil, v))
}

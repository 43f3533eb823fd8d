package ballot

import (
	"fmt"

	"github.com/pvmlabs/ballot/pvm"
)

// Exit codes returned by the Ballot program.
const (
	Success                      uint64 = 0
	ErrMethodArgNum              uint64 = 100
	ErrOwnerNotSet               uint64 = 101
	ErrOwnerAlreadySet           uint64 = 102
	ErrTopicNotSet               uint64 = 103
	ErrTopicAlreadySet           uint64 = 104
	ErrNoPermission              uint64 = 105
	ErrExceedMaxLen              uint64 = 106
	ErrInvalidVoteValue          uint64 = 107
	ErrVoteAlreadyStartedOrEnded uint64 = 108
	ErrVoteNotStartedYet         uint64 = 109
	ErrVoteNotEndYet             uint64 = 110
	ErrAlreadyVoted              uint64 = 111
	ErrInvalidAddress            uint64 = 112
	ErrMaxVoterReached           uint64 = 113
	ErrUnknownMethod             uint64 = 114
	ErrEmptyTopic                uint64 = 115
)

var codeNames = map[uint64]string{
	Success:                      "success",
	ErrMethodArgNum:              "wrong argument count",
	ErrOwnerNotSet:               "owner not set",
	ErrOwnerAlreadySet:           "owner already set",
	ErrTopicNotSet:               "topic not set",
	ErrTopicAlreadySet:           "topic already set",
	ErrNoPermission:              "no permission",
	ErrExceedMaxLen:              "exceeds max length",
	ErrInvalidVoteValue:          "invalid vote value",
	ErrVoteAlreadyStartedOrEnded: "vote already started or ended",
	ErrVoteNotStartedYet:         "vote not started yet",
	ErrVoteNotEndYet:             "vote not ended yet",
	ErrAlreadyVoted:              "already voted",
	ErrInvalidAddress:            "invalid address",
	ErrMaxVoterReached:           "max voter count reached",
	ErrUnknownMethod:             "unknown method",
	ErrEmptyTopic:                "empty topic",
}

// CodeText returns a description of a Ballot exit code.
func CodeText(code uint64) string {
	if s, ok := codeNames[code]; ok {
		return s
	}
	return fmt.Sprintf("code %d", code)
}

// Reason describes err if it carries a Ballot exit code, and falls back to
// err's own message otherwise.
func Reason(err error) string {
	if code, ok := pvm.ExitCode(err); ok {
		return CodeText(code)
	}
	return err.Error()
}

package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Executor is the abstraction the harness drives. Implementations validate
// the transaction, apply it to their state and report what happened.
type Executor interface {
	// Engine returns a human-readable short name identifying the backend.
	Engine() string

	// Exec applies tx within the block described by ctx. On success the
	// result is a *CreateResult for contract creations and a *NormalResult
	// for calls.
	Exec(ctx Context, tx *Transaction) (InterpreterResult, error)
}

// Context describes the block a transaction executes in.
type Context struct {
	BlockNumber uint64
	Time        uint64
	Coinbase    common.Address
	GasLimit    uint64
	Difficulty  *big.Int
}

// DefaultContext returns the block context used when callers have no block of
// their own: block one, a zero coinbase and a generous block gas limit.
func DefaultContext() Context {
	return Context{
		BlockNumber: 1,
		Time:        0,
		GasLimit:    30_000_000,
		Difficulty:  big.NewInt(0),
	}
}

// InterpreterResult is the outcome of a successful execution. It is either a
// *CreateResult or a *NormalResult.
type InterpreterResult interface {
	// ReturnData is the output of the execution.
	ReturnData() []byte
	// RemainingGas is the gas left after execution, before refunds.
	RemainingGas() uint64

	interpreterResult()
}

// CreateResult reports a contract created at Address.
type CreateResult struct {
	Output  []byte
	GasLeft uint64
	Address common.Address
}

// NormalResult reports a call that returned Output.
type NormalResult struct {
	Output  []byte
	GasLeft uint64
}

func (r *CreateResult) ReturnData() []byte   { return r.Output }
func (r *CreateResult) RemainingGas() uint64 { return r.GasLeft }
func (r *CreateResult) interpreterResult()   {}

func (r *NormalResult) ReturnData() []byte   { return r.Output }
func (r *NormalResult) RemainingGas() uint64 { return r.GasLeft }
func (r *NormalResult) interpreterResult()   {}

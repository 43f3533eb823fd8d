package core

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	gethtracing "github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/pvmlabs/ballot/core/vm"
	"github.com/pvmlabs/ballot/tracing"
)

var (
	txExecTimer    = metrics.NewRegisteredTimer("executor/tx/exec", nil)
	txFailureMeter = metrics.NewRegisteredCounter("executor/tx/failures", nil)
)

// Config are the configuration options for the StateExecutor.
type Config struct {
	// ChainConfig selects the fork rules of the EVM backend. Nil uses the
	// defaults of go-ethereum's runtime package.
	ChainConfig *params.ChainConfig

	// Tracer, if set, observes every transaction.
	Tracer *tracing.Hooks

	// SkipNonceChecks disables the sender nonce validation. The nonce is still
	// incremented.
	SkipNonceChecks bool
}

// StateExecutor applies transactions to a go-ethereum StateDB. Transactions
// tagged vm.EVM are run by the go-ethereum interpreter, transactions tagged
// vm.Native by the registered pvm program their artifact names.
//
// StateExecutor implements vm.Executor.
type StateExecutor struct {
	statedb *state.StateDB
	config  Config
	txIndex int

	// mu serialises Exec because StateDB is not thread-safe.
	mu sync.Mutex
}

var _ vm.Executor = (*StateExecutor)(nil)

// NewExecutor returns an executor over statedb.
func NewExecutor(statedb *state.StateDB, config Config) *StateExecutor {
	return &StateExecutor{
		statedb: statedb,
		config:  config,
	}
}

// Engine implements vm.Executor.
func (e *StateExecutor) Engine() string { return "pvm+evm" }

// StateDB returns the state the executor writes to.
func (e *StateExecutor) StateDB() *state.StateDB { return e.statedb }

// Root returns the current state root.
func (e *StateExecutor) Root() common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statedb.IntermediateRoot(true)
}

// Exec implements vm.Executor.
//
// A transaction failing validation returns an error and changes nothing. Once
// validated, the sender's nonce is consumed and gas is paid whatever the
// outcome; if the execution itself fails its state changes are reverted and
// the execution error is returned.
func (e *StateExecutor) Exec(ctx vm.Context, tx *vm.Transaction) (vm.InterpreterResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer txExecTimer.UpdateSince(start)

	intrinsic, err := e.preCheck(ctx, tx)
	if err != nil {
		log.Debug("Rejected transaction", "from", tx.From, "nonce", tx.Nonce, "err", err)
		return nil, err
	}
	hooks := e.config.Tracer
	if hooks != nil && hooks.OnTxStart != nil {
		hooks.OnTxStart(tx)
	}

	hash := tx.Hash()
	e.statedb.SetTxContext(hash, e.txIndex)
	e.txIndex++

	// Buy gas up front, refund what is left afterwards.
	e.statedb.SubBalance(tx.From, tx.GasCost(), gethtracing.BalanceDecreaseGasBuy)

	nonce := e.statedb.GetNonce(tx.From)
	snapshot := e.statedb.Snapshot()
	res, gasLeft, execErr := e.dispatch(ctx, tx, tx.GasLimit-intrinsic)
	if execErr != nil {
		e.statedb.RevertToSnapshot(snapshot)
		txFailureMeter.Inc(1)
	}
	// Contract creation through the EVM already bumped the nonce.
	if e.statedb.GetNonce(tx.From) == nonce {
		e.statedb.SetNonce(tx.From, nonce+1, gethtracing.NonceChangeEoACall)
	}

	gasUsed := tx.GasLimit - gasLeft
	price := priceOf(tx)
	refund := new(uint256.Int).Mul(uint256.NewInt(gasLeft), price)
	e.statedb.AddBalance(tx.From, refund, gethtracing.BalanceIncreaseGasReturn)
	fee := new(uint256.Int).Mul(uint256.NewInt(gasUsed), price)
	e.statedb.AddBalance(ctx.Coinbase, fee, gethtracing.BalanceIncreaseRewardTransactionFee)

	e.statedb.Finalise(true)

	log.Debug("Executed transaction", "hash", hash, "from", tx.From, "itype", tx.IType, "create", tx.IsCreate(), "gasUsed", gasUsed, "elapsed", time.Since(start), "err", execErr)
	if hooks != nil && hooks.OnTxEnd != nil {
		hooks.OnTxEnd(tx, res, gasUsed, execErr)
	}
	if execErr != nil {
		return nil, execErr
	}
	return res, nil
}

// preCheck validates tx against the block and the sender account and returns
// its intrinsic gas.
func (e *StateExecutor) preCheck(ctx vm.Context, tx *vm.Transaction) (uint64, error) {
	if !e.config.SkipNonceChecks {
		stNonce := e.statedb.GetNonce(tx.From)
		if msgNonce := tx.Nonce; stNonce < msgNonce {
			return 0, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooHigh, tx.From.Hex(), msgNonce, stNonce)
		} else if stNonce > msgNonce {
			return 0, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooLow, tx.From.Hex(), msgNonce, stNonce)
		} else if stNonce+1 < stNonce {
			return 0, fmt.Errorf("%w: address %v, nonce: %d", ErrNonceMax, tx.From.Hex(), stNonce)
		}
	}
	if ctx.GasLimit != 0 && tx.GasLimit > ctx.GasLimit {
		return 0, fmt.Errorf("%w: tx %d, block %d", ErrGasLimitReached, tx.GasLimit, ctx.GasLimit)
	}
	switch tx.IType {
	case vm.EVM, vm.Native:
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownInterpreter, tx.IType)
	}
	gas, err := IntrinsicGas(tx.Input, tx.IsCreate())
	if err != nil {
		return 0, err
	}
	if tx.GasLimit < gas {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, tx.GasLimit, gas)
	}
	if have, want := e.statedb.GetBalance(tx.From), tx.Cost(); have.Cmp(want) < 0 {
		return 0, fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientFunds, tx.From.Hex(), have, want)
	}
	return gas, nil
}

// dispatch runs tx on the backend its interpreter type selects and returns
// the result together with the gas left.
func (e *StateExecutor) dispatch(ctx vm.Context, tx *vm.Transaction, gas uint64) (vm.InterpreterResult, uint64, error) {
	switch tx.IType {
	case vm.Native:
		if tx.IsCreate() {
			return e.createNative(ctx, tx, gas)
		}
		return e.callNative(ctx, tx, gas)
	case vm.EVM:
		if tx.IsCreate() {
			return e.createEVM(ctx, tx, gas)
		}
		return e.callEVM(ctx, tx, gas)
	}
	return nil, gas, fmt.Errorf("%w: %v", ErrUnknownInterpreter, tx.IType)
}

// transfer moves the call value from the sender to the contract.
func (e *StateExecutor) transfer(from, to common.Address, value *uint256.Int) {
	if value == nil || value.IsZero() {
		return
	}
	e.statedb.SubBalance(from, value, gethtracing.BalanceChangeTransfer)
	e.statedb.AddBalance(to, value, gethtracing.BalanceChangeTransfer)
}

func priceOf(tx *vm.Transaction) *uint256.Int {
	if tx.GasPrice == nil {
		return new(uint256.Int)
	}
	return tx.GasPrice
}

func bigValue(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

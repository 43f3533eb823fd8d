package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm/runtime"
	"github.com/pvmlabs/ballot/core/vm"
	"github.com/pvmlabs/ballot/pvm"
)

// runtimeConfig builds the go-ethereum runtime configuration for tx, sharing
// the executor's StateDB.
func (e *StateExecutor) runtimeConfig(ctx vm.Context, tx *vm.Transaction, gas uint64) *runtime.Config {
	difficulty := ctx.Difficulty
	if difficulty == nil {
		difficulty = new(big.Int)
	}
	// A zero random value selects post-merge rules.
	random := common.Hash{}
	return &runtime.Config{
		ChainConfig: e.config.ChainConfig,
		Difficulty:  difficulty,
		Origin:      tx.From,
		Coinbase:    ctx.Coinbase,
		BlockNumber: new(big.Int).SetUint64(ctx.BlockNumber),
		Time:        ctx.Time,
		GasLimit:    gas,
		GasPrice:    bigValue(tx.GasPrice),
		Value:       bigValue(tx.Value),
		BaseFee:     new(big.Int),
		Random:      &random,
		State:       e.statedb,
	}
}

// createEVM runs tx.Input as EVM init code.
func (e *StateExecutor) createEVM(ctx vm.Context, tx *vm.Transaction, gas uint64) (vm.InterpreterResult, uint64, error) {
	code, address, gasLeft, err := runtime.Create(tx.Input, e.runtimeConfig(ctx, tx, gas))
	if err != nil {
		return nil, gasLeft, err
	}
	return &vm.CreateResult{Output: code, GasLeft: gasLeft, Address: address}, gasLeft, nil
}

// callEVM runs the EVM code stored at tx.To.
func (e *StateExecutor) callEVM(ctx vm.Context, tx *vm.Transaction, gas uint64) (vm.InterpreterResult, uint64, error) {
	if code := e.statedb.GetCode(*tx.To); pvm.IsArtifact(code) {
		return nil, gas, fmt.Errorf("%w: %v holds a native program", ErrInterpreterMismatch, tx.To.Hex())
	}
	ret, gasLeft, err := runtime.Call(*tx.To, tx.Input, e.runtimeConfig(ctx, tx, gas))
	if err != nil {
		return nil, gasLeft, err
	}
	return &vm.NormalResult{Output: ret, GasLeft: gasLeft}, gasLeft, nil
}

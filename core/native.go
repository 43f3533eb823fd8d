package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtracing "github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/pvmlabs/ballot/core/vm"
	"github.com/pvmlabs/ballot/pvm"
)

// createNative deploys the pvm artifact carried in tx.Input and runs the
// program's constructor, i.e. the program with an empty argv.
func (e *StateExecutor) createNative(ctx vm.Context, tx *vm.Transaction, gas uint64) (vm.InterpreterResult, uint64, error) {
	artifact, err := pvm.DecodeArtifact(tx.Input)
	if err != nil {
		return nil, gas, err
	}
	prog, err := artifact.Resolve()
	if err != nil {
		return nil, gas, err
	}
	codeGas := uint64(len(tx.Input)) * params.CreateDataGas
	if gas < codeGas {
		return nil, 0, pvm.ErrOutOfGas
	}
	gas -= codeGas

	// Derived from the state nonce, like EVM creations.
	address := crypto.CreateAddress(tx.From, e.statedb.GetNonce(tx.From))
	if e.statedb.GetNonce(address) != 0 || e.statedb.GetCodeSize(address) != 0 {
		return nil, gas, fmt.Errorf("%w: %v", ErrContractAddressCollision, address.Hex())
	}
	if !e.statedb.Exist(address) {
		e.statedb.CreateAccount(address)
	}
	e.statedb.CreateContract(address)
	e.statedb.SetNonce(address, 1, gethtracing.NonceChangeNewContract)
	e.statedb.SetCode(address, tx.Input)
	e.transfer(tx.From, address, tx.Value)

	host := pvm.NewHost(e.storage(address), tx.From, tx.Value, ctx.BlockNumber, gas)
	ret, err := pvm.Run(prog, host, nil)
	if err != nil {
		return nil, host.Gas(), fmt.Errorf("%s constructor: %w", artifact.Name, err)
	}
	log.Debug("Deployed native program", "program", artifact.Name, "address", address)
	return &vm.CreateResult{Output: ret, GasLeft: host.Gas(), Address: address}, host.Gas(), nil
}

// callNative runs the program stored at tx.To with the decoded call data.
func (e *StateExecutor) callNative(ctx vm.Context, tx *vm.Transaction, gas uint64) (vm.InterpreterResult, uint64, error) {
	address := *tx.To
	code := e.statedb.GetCode(address)
	if len(code) == 0 {
		return nil, gas, fmt.Errorf("%w: %v", ErrNoCode, address.Hex())
	}
	artifact, err := pvm.DecodeArtifact(code)
	if err != nil {
		return nil, gas, fmt.Errorf("%w: %v: %v", ErrInterpreterMismatch, address.Hex(), err)
	}
	prog, err := artifact.Resolve()
	if err != nil {
		return nil, gas, err
	}
	argv, err := pvm.CutParameters(tx.Input)
	if err != nil {
		return nil, gas, err
	}
	e.transfer(tx.From, address, tx.Value)

	host := pvm.NewHost(e.storage(address), tx.From, tx.Value, ctx.BlockNumber, gas)
	ret, err := pvm.Run(prog, host, argv)
	if err != nil {
		return nil, host.Gas(), err
	}
	return &vm.NormalResult{Output: ret, GasLeft: host.Gas()}, host.Gas(), nil
}

func (e *StateExecutor) storage(address common.Address) *pvm.Storage {
	st := pvm.NewStorage(e.statedb, address)
	if hooks := e.config.Tracer; hooks != nil && hooks.OnStorageChange != nil {
		st.SetChangeHook(pvm.ChangeHook(hooks.OnStorageChange))
	}
	return st
}

package core

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	gethtracing "github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Keys of the two accounts every FakeVM starts with.
const (
	fakeKey1 = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	fakeKey2 = "8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a"
)

var (
	// FakeBalance is the genesis balance of the FakeVM accounts (0.1 ether).
	FakeBalance = uint256.MustFromDecimal("100000000000000000")

	// FakeNonce is the genesis nonce of the FakeVM accounts.
	FakeNonce uint64 = 1
)

// FakeVM bundles an executor over a fresh in-memory state with two funded
// accounts, for tests and local experiments.
type FakeVM struct {
	Executor *StateExecutor

	Account1 common.Address
	Account2 common.Address
	Key1     *ecdsa.PrivateKey
	Key2     *ecdsa.PrivateKey
}

// NewFakeVM creates a FakeVM with the default configuration.
func NewFakeVM() *FakeVM {
	return NewFakeVMWithConfig(Config{})
}

// NewFakeVMWithConfig creates a FakeVM whose executor uses config.
func NewFakeVMWithConfig(config Config) *FakeVM {
	statedb, err := state.New(common.Hash{}, state.NewDatabaseForTesting())
	if err != nil {
		// An empty root always opens on a fresh database.
		panic(err)
	}
	vm := &FakeVM{
		Key1: mustKey(fakeKey1),
		Key2: mustKey(fakeKey2),
	}
	vm.Account1 = crypto.PubkeyToAddress(vm.Key1.PublicKey)
	vm.Account2 = crypto.PubkeyToAddress(vm.Key2.PublicKey)

	for _, addr := range []common.Address{vm.Account1, vm.Account2} {
		statedb.CreateAccount(addr)
		statedb.AddBalance(addr, FakeBalance, gethtracing.BalanceIncreaseGenesisBalance)
		statedb.SetNonce(addr, FakeNonce, gethtracing.NonceChangeGenesis)
	}
	statedb.Finalise(true)

	vm.Executor = NewExecutor(statedb, config)
	return vm
}

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

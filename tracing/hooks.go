// Package tracing lets callers observe what an executor does with each
// transaction it is handed.
package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pvmlabs/ballot/core/vm"
)

type (
	// TxStartHook is called before a validated transaction executes.
	TxStartHook = func(tx *vm.Transaction)

	// TxEndHook is called after a transaction was applied. res is nil when
	// err is set. gasUsed is what the sender paid for.
	TxEndHook = func(tx *vm.Transaction, res vm.InterpreterResult, gasUsed uint64, err error)

	// StorageChangeHook is called for every key a native program committed.
	// prev is nil when the key was previously unset.
	StorageChangeHook = func(contract common.Address, key, prev, value []byte)
)

// Hooks is a set of optional callbacks. Nil fields are skipped.
type Hooks struct {
	OnTxStart       TxStartHook
	OnTxEnd         TxEndHook
	OnStorageChange StorageChangeHook
}

// Combine returns hooks that invoke each of the given hooks in order.
func Combine(hooks ...*Hooks) *Hooks {
	var live []*Hooks
	for _, h := range hooks {
		if h != nil {
			live = append(live, h)
		}
	}
	return &Hooks{
		OnTxStart: func(tx *vm.Transaction) {
			for _, h := range live {
				if h.OnTxStart != nil {
					h.OnTxStart(tx)
				}
			}
		},
		OnTxEnd: func(tx *vm.Transaction, res vm.InterpreterResult, gasUsed uint64, err error) {
			for _, h := range live {
				if h.OnTxEnd != nil {
					h.OnTxEnd(tx, res, gasUsed, err)
				}
			}
		},
		OnStorageChange: func(contract common.Address, key, prev, value []byte) {
			for _, h := range live {
				if h.OnStorageChange != nil {
					h.OnStorageChange(contract, key, prev, value)
				}
			}
		},
	}
}

package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pvmlabs/ballot/core/vm"
)

// NewLogger returns hooks that report every transaction and storage change
// through logger. A nil logger means the root logger.
func NewLogger(logger log.Logger) *Hooks {
	if logger == nil {
		logger = log.Root()
	}
	return &Hooks{
		OnTxStart: func(tx *vm.Transaction) {
			logger.Debug("Transaction start", "hash", tx.Hash(), "from", tx.From, "to", tx.To, "nonce", tx.Nonce, "itype", tx.IType)
		},
		OnTxEnd: func(tx *vm.Transaction, res vm.InterpreterResult, gasUsed uint64, err error) {
			if err != nil {
				logger.Info("Transaction failed", "hash", tx.Hash(), "gasUsed", gasUsed, "err", err)
				return
			}
			switch r := res.(type) {
			case *vm.CreateResult:
				logger.Info("Contract created", "hash", tx.Hash(), "address", r.Address, "gasUsed", gasUsed)
			case *vm.NormalResult:
				logger.Info("Transaction executed", "hash", tx.Hash(), "output", hexutil.Bytes(r.Output), "gasUsed", gasUsed)
			}
		},
		OnStorageChange: func(contract common.Address, key, prev, value []byte) {
			logger.Trace("Storage change", "contract", contract, "key", hexutil.Bytes(key), "prev", hexutil.Bytes(prev), "value", hexutil.Bytes(value))
		},
	}
}

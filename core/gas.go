package core

import (
	"bytes"
	"math"

	"github.com/ethereum/go-ethereum/params"
)

// IntrinsicGas computes the gas a transaction costs before any code runs: the
// flat transaction fee plus the cost of its input bytes.
func IntrinsicGas(data []byte, isContractCreation bool) (uint64, error) {
	var gas uint64
	if isContractCreation {
		gas = params.TxGasContractCreation
	} else {
		gas = params.TxGas
	}
	if len(data) == 0 {
		return gas, nil
	}
	z := uint64(bytes.Count(data, []byte{0}))
	nz := uint64(len(data)) - z

	if (math.MaxUint64-gas)/params.TxDataNonZeroGasEIP2028 < nz {
		return 0, ErrGasUintOverflow
	}
	gas += nz * params.TxDataNonZeroGasEIP2028

	if (math.MaxUint64-gas)/params.TxDataZeroGas < z {
		return 0, ErrGasUintOverflow
	}
	gas += z * params.TxDataZeroGas

	return gas, nil
}

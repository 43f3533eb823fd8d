package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Transaction carries the fields an Executor needs to apply one call or
// contract creation. It is built per call and consumed once; executors must
// not mutate it.
//
// A nil To marks a contract creation, in which case Input is the code (EVM
// init code or a pvm artifact, depending on IType). Otherwise Input is the
// call data handed to the code stored at To.
type Transaction struct {
	From     common.Address
	To       *common.Address
	Value    *uint256.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *uint256.Int
	Input    []byte
	IType    InterpreterType
}

// txdata is the RLP layout used for hashing.
type txdata struct {
	From     common.Address
	To       *common.Address `rlp:"nil"`
	Value    *uint256.Int
	Nonce    uint64
	GasLimit uint64
	GasPrice *uint256.Int
	Input    []byte
	IType    uint8
}

// IsCreate reports whether the transaction deploys a contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }

// Hash returns the keccak256 hash of the RLP encoded transaction.
func (tx *Transaction) Hash() common.Hash {
	enc, err := rlp.EncodeToBytes(&txdata{
		From:     tx.From,
		To:       tx.To,
		Value:    valueOrZero(tx.Value),
		Nonce:    tx.Nonce,
		GasLimit: tx.GasLimit,
		GasPrice: valueOrZero(tx.GasPrice),
		Input:    tx.Input,
		IType:    uint8(tx.IType),
	})
	if err != nil {
		// Every field has a fixed RLP mapping, so this is unreachable.
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// GasCost returns GasLimit * GasPrice, the amount bought up front.
func (tx *Transaction) GasCost() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(tx.GasLimit), valueOrZero(tx.GasPrice))
}

// Cost returns the maximum amount the sender can be charged: the gas cost
// plus the transferred value.
func (tx *Transaction) Cost() *uint256.Int {
	return new(uint256.Int).Add(tx.GasCost(), valueOrZero(tx.Value))
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

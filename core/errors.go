package core

import "errors"

// List of transaction validation errors. A transaction failing any of these
// checks is rejected before execution and leaves the state untouched.
var (
	// ErrNonceTooLow is returned if the nonce of a transaction is lower than the
	// one present in the local state.
	ErrNonceTooLow = errors.New("nonce too low")

	// ErrNonceTooHigh is returned if the nonce of a transaction is higher than the
	// next one expected based on the local state.
	ErrNonceTooHigh = errors.New("nonce too high")

	// ErrNonceMax is returned if the nonce of a transaction sender account has
	// maximum allowed value and would become invalid if incremented.
	ErrNonceMax = errors.New("nonce has max value")

	// ErrGasLimitReached is returned by the executor if the gas limit of the
	// transaction exceeds the block gas limit.
	ErrGasLimitReached = errors.New("gas limit reached")

	// ErrInsufficientFunds is returned if the total cost of executing a transaction
	// is higher than the balance of the user's account.
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")

	// ErrGasUintOverflow is returned when calculating gas usage.
	ErrGasUintOverflow = errors.New("gas uint64 overflow")

	// ErrIntrinsicGas is returned if the transaction is specified to use less gas
	// than required to start the invocation.
	ErrIntrinsicGas = errors.New("intrinsic gas too low")

	// ErrUnknownInterpreter is returned for an interpreter type tag the
	// executor has no backend for.
	ErrUnknownInterpreter = errors.New("unknown interpreter type")
)

// List of execution errors. These are returned after the transaction has been
// charged: its nonce is consumed and its gas paid, but its effects are reverted.
var (
	// ErrNoCode is returned when calling an account without code.
	ErrNoCode = errors.New("no contract code at address")

	// ErrInterpreterMismatch is returned when the interpreter type of a call
	// does not match the kind of code stored at the target.
	ErrInterpreterMismatch = errors.New("code does not match interpreter type")

	// ErrContractAddressCollision is returned when a native deployment targets
	// an address that already holds a contract.
	ErrContractAddressCollision = errors.New("contract address collision")
)

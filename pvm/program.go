package pvm

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

var (
	ErrOutOfGas     = errors.New("pvm: out of gas")
	ErrProgramPanic = errors.New("pvm: program panicked")
)

// Program is a native contract. argv holds the decoded call data: argv[0] is
// the method name and the rest are its parameters. The deployment run gets an
// empty argv.
//
// A nil return commits every Save made through env; any error discards them.
type Program interface {
	Run(env Env, argv [][]byte) error
}

// ProgramFunc adapts a plain function to the Program interface.
type ProgramFunc func(env Env, argv [][]byte) error

func (f ProgramFunc) Run(env Env, argv [][]byte) error { return f(env, argv) }

// Env is what a running program can observe and touch.
type Env interface {
	// Caller is the account that sent the transaction.
	Caller() common.Address
	// Address is the account the program runs as.
	Address() common.Address
	// Value is the amount transferred with the call.
	Value() *uint256.Int
	// BlockNumber is the number of the executing block.
	BlockNumber() uint64

	// Load returns the value stored under key, or nil if there is none.
	Load(key []byte) ([]byte, error)
	// Save stores value under key. An empty value deletes the key.
	Save(key, value []byte) error
	// Ret sets the bytes returned to the caller. Later calls overwrite.
	Ret(data []byte)
	// Debug emits a diagnostic message.
	Debug(msg string)
}

// ExitError is a non-zero program exit code.
type ExitError struct {
	Code uint64
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("pvm: program exited with code %d", e.Code)
}

// Exit returns the error a program uses to stop with the given code.
func Exit(code uint64) error { return &ExitError{Code: code} }

// ExitCode extracts the program exit code from err. It reports false when
// err does not carry one.
func ExitCode(err error) (uint64, bool) {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code, true
	}
	return 0, false
}

// Host implements Env for one program invocation.
type Host struct {
	storage     *Storage
	caller      common.Address
	value       *uint256.Int
	blockNumber uint64
	gas         uint64
	ret         []byte
}

// NewHost prepares an invocation against storage, with gas available to
// storage accesses.
func NewHost(storage *Storage, caller common.Address, value *uint256.Int, blockNumber, gas uint64) *Host {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Host{
		storage:     storage,
		caller:      caller,
		value:       value,
		blockNumber: blockNumber,
		gas:         gas,
	}
}

func (h *Host) Caller() common.Address  { return h.caller }
func (h *Host) Address() common.Address { return h.storage.Address() }
func (h *Host) Value() *uint256.Int     { return new(uint256.Int).Set(h.value) }
func (h *Host) BlockNumber() uint64     { return h.blockNumber }

// Gas returns the gas left.
func (h *Host) Gas() uint64 { return h.gas }

func (h *Host) useGas(amount uint64) error {
	if h.gas < amount {
		h.gas = 0
		return ErrOutOfGas
	}
	h.gas -= amount
	return nil
}

func (h *Host) Load(key []byte) ([]byte, error) {
	val, reads := h.storage.Load(key)
	if err := h.useGas(uint64(reads) * params.SloadGasEIP2200); err != nil {
		return nil, err
	}
	return val, nil
}

func (h *Host) Save(key, value []byte) error {
	writes, err := h.storage.Save(key, value)
	if err != nil {
		return err
	}
	return h.useGas(uint64(writes) * params.SstoreSetGasEIP2200)
}

func (h *Host) Ret(data []byte) {
	h.ret = common.CopyBytes(data)
}

func (h *Host) Debug(msg string) {
	log.Debug("Program debug", "contract", h.storage.Address(), "msg", msg)
}

// Run executes prog on h. On success the pending storage writes are flushed
// to the state and the returned bytes are those passed to the last Ret. On
// failure the writes are discarded. A panicking program is reported as
// ErrProgramPanic.
func Run(prog Program, h *Host, argv [][]byte) (ret []byte, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProgramPanic, r)
		}
		if err != nil {
			runFailureMeter.Inc(1)
			h.storage.Discard()
			ret = nil
		} else {
			h.storage.Flush()
		}
		runTimer.UpdateSince(start)
	}()

	if err := prog.Run(h, argv); err != nil {
		return nil, err
	}
	return h.ret, nil
}

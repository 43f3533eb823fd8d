package pvm

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// MaxValueSize bounds a single stored value.
const MaxValueSize = 64 * 1024

var ErrValueTooLarge = errors.New("pvm: storage value too large")

// ChangeHook is invoked for every key whose value was committed by Flush.
type ChangeHook func(contract common.Address, key, prev, value []byte)

// Storage maps a program's byte keys and values onto the 32-byte storage
// slots of its contract account.
//
// A value stored under key K occupies the slot keccak256(K), which holds the
// value length, followed by ceil(len/32) consecutive slots with the
// right-zero-padded data.
//
// Writes are journaled in a pending overlay until Flush applies them to the
// StateDB. Discard drops them, which is how a failed program run leaves the
// contract state untouched.
type Storage struct {
	db   *state.StateDB
	addr common.Address

	// pending records the latest value of every slot written since the last
	// Flush or Discard.
	pending map[common.Hash]common.Hash
	// changes records key level writes, in order, for the change hook.
	changes []change
	hook    ChangeHook

	// mu protects the overlay because StateDB is not thread-safe.
	mu sync.Mutex
}

type change struct {
	key, prev, value []byte
}

// NewStorage returns the storage view of the contract at addr.
func NewStorage(db *state.StateDB, addr common.Address) *Storage {
	return &Storage{db: db, addr: addr}
}

// SetChangeHook installs fn to observe committed writes.
func (s *Storage) SetChangeHook(fn ChangeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// Address returns the contract account backing the storage.
func (s *Storage) Address() common.Address { return s.addr }

// ensureJournal lazily allocs the overlay.
func (s *Storage) ensureJournal() {
	if s.pending == nil {
		s.pending = make(map[common.Hash]common.Hash)
	}
}

// slot reads a slot, consulting the overlay first.
func (s *Storage) slot(key common.Hash) common.Hash {
	if s.pending != nil {
		if val, ok := s.pending[key]; ok {
			return val
		}
	}
	return s.db.GetState(s.addr, key)
}

func (s *Storage) setSlot(key, val common.Hash) {
	s.ensureJournal()
	s.pending[key] = val
}

// Load returns the value stored under key (nil when absent) and the number of
// slots read.
func (s *Storage) Load(key []byte) ([]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storageLoadMeter.Inc(1)
	return s.load(key)
}

func (s *Storage) load(key []byte) ([]byte, int) {
	base := keySlot(key)
	size := slotLength(s.slot(base))
	reads := 1
	if size == 0 {
		return nil, reads
	}
	out := make([]byte, 0, size)
	for i := uint64(0); uint64(len(out)) < size; i++ {
		chunk := s.slot(chunkSlot(base, i))
		reads++
		n := min(size-uint64(len(out)), common.HashLength)
		out = append(out, chunk[:n]...)
	}
	return out, reads
}

// Save stores value under key in the overlay and returns the number of slots
// written. Slots of a longer previous value are cleared.
func (s *Storage) Save(key, value []byte) (int, error) {
	if len(value) > MaxValueSize {
		return 0, ErrValueTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	storageSaveMeter.Inc(1)

	var prev []byte
	if s.hook != nil {
		prev, _ = s.load(key)
	}

	base := keySlot(key)
	prevChunks := chunkCount(slotLength(s.slot(base)))
	chunks := chunkCount(uint64(len(value)))

	s.setSlot(base, lengthSlot(uint64(len(value))))
	writes := 1
	for i := uint64(0); i < chunks; i++ {
		var chunk common.Hash
		copy(chunk[:], value[i*common.HashLength:])
		s.setSlot(chunkSlot(base, i), chunk)
		writes++
	}
	for i := chunks; i < prevChunks; i++ {
		s.setSlot(chunkSlot(base, i), common.Hash{})
		writes++
	}
	if s.hook != nil {
		s.changes = append(s.changes, change{
			key:   common.CopyBytes(key),
			prev:  prev,
			value: common.CopyBytes(value),
		})
	}
	return writes, nil
}

// Dirty reports whether there are writes that have not been flushed.
func (s *Storage) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Flush applies everything recorded in the overlay to the underlying StateDB
// and then clears the overlay.
func (s *Storage) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, val := range s.pending {
		s.db.SetState(s.addr, key, val)
	}
	if s.hook != nil {
		for _, c := range s.changes {
			s.hook(s.addr, c.key, c.prev, c.value)
		}
	}
	s.pending = nil
	s.changes = nil
}

// Discard drops the overlay without touching the StateDB.
func (s *Storage) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.changes = nil
}

// -----------------------------------------------------------------------------
// Slot layout helpers
// -----------------------------------------------------------------------------

func keySlot(key []byte) common.Hash {
	return crypto.Keccak256Hash(key)
}

func chunkSlot(base common.Hash, i uint64) common.Hash {
	pos := new(uint256.Int).SetBytes(base[:])
	pos.AddUint64(pos, i+1)
	return pos.Bytes32()
}

func lengthSlot(size uint64) common.Hash {
	return uint256.NewInt(size).Bytes32()
}

// slotLength decodes a length slot. Values beyond MaxValueSize can only come
// from slots not written by Storage and are treated as empty.
func slotLength(h common.Hash) uint64 {
	size := new(uint256.Int).SetBytes(h[:])
	if !size.IsUint64() || size.Uint64() > MaxValueSize {
		return 0
	}
	return size.Uint64()
}

func chunkCount(size uint64) uint64 {
	return (size + common.HashLength - 1) / common.HashLength
}

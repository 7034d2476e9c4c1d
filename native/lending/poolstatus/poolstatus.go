// Package poolstatus implements the per-(asset, operation) gating booleans
// that every pool mutation must pass before touching storage, AND-ed against
// a single process-wide system status. Storage is a mutex-guarded map, per
// design: ownership of a mutable reference is
// exclusive per transaction by construction, never shared across goroutines.
package poolstatus

import (
	"errors"
	"sync"

	"duallend/native/lending/coinkey"
	"duallend/native/lending/events"
)

// ErrNotAvailable reports that either the system status or the specific
// per-coin operation flag disallows the requested mutation.
var ErrNotAvailable = errors.New("poolstatus: operation not available")

// Op identifies one of the five gated pool operations.
type Op int

const (
	OpDeposit Op = iota
	OpWithdraw
	OpBorrow
	OpRepay
	OpSwitchCollateral
)

// Flags are the five per-coin booleans gating pool operations.
type Flags struct {
	Deposit          bool
	Withdraw         bool
	Borrow           bool
	Repay            bool
	SwitchCollateral bool
}

func (f Flags) allows(op Op) bool {
	switch op {
	case OpDeposit:
		return f.Deposit
	case OpWithdraw:
		return f.Withdraw
	case OpBorrow:
		return f.Borrow
	case OpRepay:
		return f.Repay
	case OpSwitchCollateral:
		return f.SwitchCollateral
	default:
		return false
	}
}

// AllEnabled returns Flags with every operation permitted, the default state
// for a newly onboarded asset.
func AllEnabled() Flags {
	return Flags{Deposit: true, Withdraw: true, Borrow: true, Repay: true, SwitchCollateral: true}
}

// Registry is the process-wide singleton holding the global system status
// and every coin's per-operation flags.
type Registry struct {
	mu       sync.Mutex
	systemOK bool
	perCoin  map[coinkey.Key]Flags
	sink     events.Sink
}

// NewRegistry constructs a Registry with the system marked healthy and no
// coins registered yet.
func NewRegistry(sink events.Sink) *Registry {
	return &Registry{
		systemOK: true,
		perCoin:  make(map[coinkey.Key]Flags),
		sink:     sink,
	}
}

// SetSystemStatus flips the global status gate.
func (r *Registry) SetSystemStatus(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemOK = ok
	events.Emit(r.sink, events.Event{
		Type:       "PoolStatusUpdate",
		Attributes: map[string]string{"key": "*", "system_ok": boolStr(ok)},
	})
}

// SetCoin replaces the per-operation flags for a coin key, initializing it if
// not already present.
func (r *Registry) SetCoin(key coinkey.Key, flags Flags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perCoin[key] = flags
	events.Emit(r.sink, events.Event{
		Type: "PoolStatusUpdate",
		Attributes: map[string]string{
			"key":              key.String(),
			"can_deposit":      boolStr(flags.Deposit),
			"can_withdraw":     boolStr(flags.Withdraw),
			"can_borrow":       boolStr(flags.Borrow),
			"can_repay":        boolStr(flags.Repay),
			"can_switch_colla": boolStr(flags.SwitchCollateral),
		},
	})
}

// Flags returns the current per-coin flags, defaulting to all-disabled for an
// unregistered coin.
func (r *Registry) Flags(key coinkey.Key) Flags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.perCoin[key]
}

// Check returns ErrNotAvailable unless the global status is healthy AND the
// coin's flag for op is set.
func (r *Registry) Check(key coinkey.Key, op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.systemOK {
		return ErrNotAvailable
	}
	flags, ok := r.perCoin[key]
	if !ok || !flags.allows(op) {
		return ErrNotAvailable
	}
	return nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

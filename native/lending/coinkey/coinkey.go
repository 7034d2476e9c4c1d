// Package coinkey defines the canonical identifier used to key every pool,
// position, and risk-parameter map in the lending module.
package coinkey

import "strings"

// Key is a canonical, stable identifier for a coin type (e.g. a fully
// qualified on-chain type name such as "0x1::weth::WETH"). Keys are compared
// by exact byte value; callers are responsible for supplying an already
// canonical form.
type Key string

// Empty reports whether the key carries no identifier.
func (k Key) Empty() bool {
	return strings.TrimSpace(string(k)) == ""
}

// String returns the key's underlying string form.
func (k Key) String() string {
	return string(k)
}

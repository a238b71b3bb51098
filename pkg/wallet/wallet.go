// Package wallet provides EVM wallet address validation and normalization.
// Addresses are stored and compared in lowercase hex form.
package wallet

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a valid EVM address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Normalize validates addr and returns its canonical lowercase form.
func Normalize(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return "", ErrInvalidAddress
	}
	if !common.IsHexAddress(trimmed) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

// IsValid reports whether addr is a well-formed EVM address.
func IsValid(addr string) bool {
	_, err := Normalize(addr)
	return err == nil
}

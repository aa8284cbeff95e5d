// Package address canonicalizes and compares 20-byte account identifiers.
//
// Addresses travel as hex strings between owners, the relay and the ledger.
// Normalize turns any accepted spelling into a common.Address whose Hex form
// is the EIP-55 checksummed string, so equality never depends on case.
package address

import (
	"bytes"
	"strings"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"

	"github.com/ethereum/go-ethereum/common"
)

// Wildcard is the reserved all-zero address. It is never checksummed and is
// never an owner.
var Wildcard = common.Address{}

// Normalize parses raw into an address. Input must be 40 hex digits with an
// optional 0x prefix. Mixed-case input must carry a valid checksum;
// all-lower and all-upper spellings are accepted as-is.
func Normalize(raw string) (common.Address, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return common.Address{}, apperr.ErrInvalidAddress.Newf("%q is not a 20-byte hex address", raw)
	}
	addr := common.HexToAddress(s)
	if addr == Wildcard {
		return Wildcard, nil
	}

	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if isMixedCase(digits) && digits != addr.Hex()[2:] {
		return common.Address{}, apperr.ErrInvalidAddress.Newf("%q has an invalid checksum", raw)
	}
	return addr, nil
}

// MustNormalize is Normalize for constants and tests.
func MustNormalize(raw string) common.Address {
	addr, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders addr in canonical form.
func String(addr common.Address) string {
	if addr == Wildcard {
		return "0x0000000000000000000000000000000000000000"
	}
	return addr.Hex()
}

// Equals compares two raw addresses by their normalized forms. Malformed
// input is never equal to anything.
func Equals(a, b string) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

// IsWildcard reports whether addr is the reserved sentinel.
func IsWildcard(addr common.Address) bool {
	return addr == Wildcard
}

// Compare orders addresses by their numeric value.
func Compare(a, b common.Address) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}

// ParseOwner normalizes raw and rejects the wildcard sentinel.
func ParseOwner(raw string) (common.Address, error) {
	addr, err := Normalize(raw)
	if err != nil {
		return common.Address{}, err
	}
	if IsWildcard(addr) {
		return common.Address{}, apperr.ErrNotOwner.New("the zero address cannot act as an owner")
	}
	return addr, nil
}

// Contains reports whether set holds addr. The wildcard is never contained.
func Contains(set []common.Address, addr common.Address) bool {
	if IsWildcard(addr) {
		return false
	}
	for _, a := range set {
		if a == addr {
			return true
		}
	}
	return false
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}

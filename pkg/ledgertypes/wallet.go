// Package ledgertypes holds the small value types shared by every other
// remittance package: wallet addresses, chains, actions and the event
// record that ties them together.
package ledgertypes

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// WalletLength is the byte length of an Ethereum-style address.
const WalletLength = 20

// Wallet is a 20-byte Ethereum-style address.
type Wallet [WalletLength]byte

// ParseWallet parses a hex string (with or without a "0x" prefix) into a
// Wallet. An incorrect decoded length fails with INVALID_ADDRESS_LENGTH.
func ParseWallet(s string) (Wallet, error) {
	var w Wallet
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return w, apperrors.MalformedInput(apperrors.CodeInvalidAddressLength, "address is not valid hex: "+s, err)
	}
	if len(raw) != WalletLength {
		return w, apperrors.MalformedInput(apperrors.CodeInvalidAddressLength, "address must decode to 20 bytes", nil)
	}
	copy(w[:], raw)
	return w, nil
}

// String formats the wallet as a lowercase "0x"-prefixed hex string.
func (w Wallet) String() string {
	return "0x" + hex.EncodeToString(w[:])
}

// Bytes returns the wallet's raw 20 bytes.
func (w Wallet) Bytes() []byte {
	return w[:]
}

// IsZero reports whether w is the zero address.
func (w Wallet) IsZero() bool {
	return w == Wallet{}
}

// Equal reports byte equality between two wallets.
func (w Wallet) Equal(other Wallet) bool {
	return w == other
}

// Less orders wallets lexicographically by bytes.
func (w Wallet) Less(other Wallet) bool {
	return bytes.Compare(w[:], other[:]) < 0
}

// MarshalJSON encodes the wallet as a "0x"-prefixed hex string.
func (w Wallet) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON decodes a "0x"-prefixed hex string into the wallet.
func (w *Wallet) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWallet(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

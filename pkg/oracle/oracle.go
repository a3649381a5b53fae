// Package oracle defines the abstract ECDSA signing oracle the remittance
// ledger depends on, plus the EVM signature plumbing (Ethereum-prefixed
// hashing, r||s||v packing, and address recovery) that every component
// built on top of the oracle shares.
package oracle

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// KeyID names one of the oracle's managed signing keys. Key material
// lives behind the oracle (threshold-ECDSA service, KMS, or a local
// derivation for tests); this package only ever sees key ids.
type KeyID string

const (
	KeyIDTestLocal  KeyID = "test-local"
	KeyIDTestShared KeyID = "test-shared"
	KeyIDProduction KeyID = "production"
)

// SigningOracle is the abstract external signing dependency. Both of its
// operations are treated as blocking calls that may fail; failures surface
// as SIGN_WITH_ECDSA_FAILED.
type SigningOracle interface {
	// DerivePublicKey returns the compressed SEC1 (33-byte) public key for
	// the given key id and derivation path.
	DerivePublicKey(keyID KeyID, derivationPath []string) ([]byte, error)
	// SignHash returns a raw 64-byte (r||s) signature over a 32-byte message
	// hash using the given key id and derivation path.
	SignHash(hash [32]byte, keyID KeyID, derivationPath []string) ([]byte, error)
}

// EthereumSignedMessageHash hashes msg per the Ethereum personal-message
// convention: keccak256("\x19Ethereum Signed Message:\n" || len(msg) || msg).
func EthereumSignedMessageHash(msg []byte) [32]byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// PackSignature packs a raw 64-byte (r||s) signature plus a recovery id
// into the full EVM 65-byte encoding: r (32 bytes, left-padded) || s (32
// bytes, left-padded) || v, with v in {27, 28}. r and s may arrive with
// leading zero bytes stripped; ecrecover requires the fixed 32-byte
// fields, so they are left-padded back here.
func PackSignature(r, s []byte, recoveryID byte) []byte {
	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = recoveryID + 27
	return sig
}

// recoveryIDForPublicKey enumerates recovery ids 0 and 1 against hash and
// rawSig (r||s), returning the one whose recovered public key matches want.
func recoveryIDForPublicKey(hash [32]byte, rawSig []byte, want []byte) (byte, error) {
	for recID := byte(0); recID < 2; recID++ {
		candidate := append(append([]byte{}, rawSig...), recID)
		pub, err := crypto.SigToPub(hash[:], candidate)
		if err != nil {
			continue
		}
		compressed := crypto.CompressPubkey(pub)
		if string(compressed) == string(want) {
			return recID, nil
		}
	}
	return 0, fmt.Errorf("no recovery id reconstructs the expected public key")
}

// PackEVMSignature packs a raw 64-byte signature into the full 65-byte EVM
// form, determining v by enumerating recovery ids and matching the public
// key the oracle reports for the signing key.
func PackEVMSignature(hash [32]byte, rawSig []byte, publicKey []byte) ([]byte, error) {
	if len(rawSig) != 64 {
		return nil, fmt.Errorf("raw signature must be 64 bytes, got %d", len(rawSig))
	}
	recID, err := recoveryIDForPublicKey(hash, rawSig, publicKey)
	if err != nil {
		return nil, err
	}
	return PackSignature(rawSig[:32], rawSig[32:], recID), nil
}

// RecoverAddressFromEthSignature parses a 65-byte signature ("0x"-prefixed
// hex, r||s||v), recomputes the Ethereum-prefixed hash of message, recovers
// the compressed public key, and derives the lower 20 bytes of
// keccak256(uncompressed_pub_key[1:]) as the signer address, lowercased
// with a "0x" prefix.
func RecoverAddressFromEthSignature(signatureHex, message string) (string, error) {
	trimmed := strings.TrimPrefix(signatureHex, "0x")
	sigBytes, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", apperrors.OracleFailure(apperrors.CodeInvalidEthSignature, "signature is not valid hex", err)
	}
	if len(sigBytes) != 65 {
		return "", apperrors.OracleFailure(apperrors.CodeInvalidEthSignature,
			fmt.Sprintf("signature must be 65 bytes, got %d", len(sigBytes)), nil)
	}

	// Normalize v (27/28 or 0/1) to the 0/1 form crypto.SigToPub expects.
	normalized := make([]byte, 65)
	copy(normalized, sigBytes)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return "", apperrors.OracleFailure(apperrors.CodeInvalidEthSignature, "invalid recovery byte", nil)
	}

	hash := EthereumSignedMessageHash([]byte(message))
	pub, err := crypto.SigToPub(hash[:], normalized)
	if err != nil {
		return "", apperrors.OracleFailure(apperrors.CodeInvalidEthSignature, "failed to recover public key", err)
	}

	addr := crypto.PubkeyToAddress(*pub)
	return strings.ToLower(addr.Hex()), nil
}

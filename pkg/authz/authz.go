// Package authz implements the remit() authorization state machine:
// turning a caller-proven withdrawal request into a replayable, verifiable
// EVM signature and an atomic ledger mutation.
package authz

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
	"github.com/chainsafe/remittance-ledger/pkg/nonce"
	"github.com/chainsafe/remittance-ledger/pkg/oracle"
)

// Result is the response to a remit() call: the packed hash the signature
// was produced over, the 65-byte EVM signature hex, the nonce bound into
// the hash, and the amount authorized.
type Result struct {
	Hash      string
	Signature string
	Nonce     uint64
	Amount    uint64
}

// Authorizer owns the oracle/nonce dependencies remit() needs alongside
// the ledger. One Authorizer is constructed per (key id, derivation path)
// the deployment signs under.
type Authorizer struct {
	ledger         *ledger.Ledger
	oracle         oracle.SigningOracle
	nonces         *nonce.Source
	keyID          oracle.KeyID
	derivationPath []string
}

// New constructs an Authorizer.
func New(l *ledger.Ledger, o oracle.SigningOracle, n *nonce.Source, keyID oracle.KeyID, derivationPath []string) *Authorizer {
	return &Authorizer{ledger: l, oracle: o, nonces: n, keyID: keyID, derivationPath: derivationPath}
}

func leftPadUint64(v uint64) [32]byte {
	var b [32]byte
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

// encodePacked reproduces Solidity's abi.encodePacked(uint256(nonce),
// uint256(amount), address(account), string(chain), string(dc),
// address(token)): big-endian 32-byte integers, raw 20-byte addresses, and
// UTF-8 string bytes with no length prefix. The on-chain redeemer hashes
// the same layout, so this encoding must stay byte-compatible with it.
// Hand-rolled over a byte buffer; go-ethereum/accounts/abi targets ABI
// function-call encoding, not encodePacked.
func encodePacked(n uint64, amount uint64, account ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal, token ledgertypes.Wallet) []byte {
	nb := leftPadUint64(n)
	ab := leftPadUint64(amount)

	buf := make([]byte, 0, 32+32+20+len(chain.String())+len(dc)+20)
	buf = append(buf, nb[:]...)
	buf = append(buf, ab[:]...)
	buf = append(buf, account.Bytes()...)
	buf = append(buf, []byte(chain.String())...)
	buf = append(buf, []byte(dc)...)
	buf = append(buf, token.Bytes()...)
	return buf
}

// packedHash computes H = keccak256(encodePacked(...)) for a given nonce,
// shared by the fresh-issuance path and by idempotent replay (which must
// recompute the same hash for the cached nonce rather than cache it).
func packedHash(n uint64, amount uint64, account ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal, token ledgertypes.Wallet) [32]byte {
	return crypto.Keccak256Hash(encodePacked(n, amount, account, chain, dc, token))
}

// Remit issues a signed withdrawal authorization. A request whose
// (key, amount) already has an outstanding withheld entry replays the
// cached signature and nonce verbatim; a fresh request draws a nonce,
// hashes, signs, and only then mutates the ledger, so no caller can
// observe a signature without its withheld entry or vice versa.
func (a *Authorizer) Remit(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64, proof string) (Result, error) {
	if amount == 0 {
		return Result{}, apperrors.Validation(apperrors.CodeNonAdjustAmountMustBeGT0, "remit amount must be greater than 0", nil)
	}

	recovered, err := oracle.RecoverAddressFromEthSignature(proof, strconv.FormatUint(amount, 10))
	if err != nil {
		return Result{}, err
	}
	if recovered != account.String() {
		return Result{}, apperrors.OracleFailure(apperrors.CodeInvalidEthSignature,
			"recovered signer does not match the requested account", nil)
	}

	if entry, ok := a.ledger.WithheldEntry(token, chain, account, dc, amount); ok {
		h := packedHash(entry.Nonce, amount, account, chain, dc, token)
		return Result{
			Hash:      "0x" + hex.EncodeToString(h[:]),
			Signature: entry.Signature,
			Nonce:     entry.Nonce,
			Amount:    amount,
		}, nil
	}

	if amount > a.ledger.Available(token, chain, account, dc) {
		return Result{}, apperrors.LedgerState(apperrors.CodeRemitAmountExceedsAvailable,
			"remit amount exceeds available balance", nil)
	}

	n := a.nonces.Next()
	h := packedHash(n, amount, account, chain, dc, token)
	prefixed := oracle.EthereumSignedMessageHash(h[:])

	rawSig, err := a.oracle.SignHash(prefixed, a.keyID, a.derivationPath)
	if err != nil {
		return Result{}, err
	}
	pubKey, err := a.oracle.DerivePublicKey(a.keyID, a.derivationPath)
	if err != nil {
		return Result{}, err
	}
	packed, err := oracle.PackEVMSignature(prefixed, rawSig, pubKey)
	if err != nil {
		return Result{}, apperrors.OracleFailure(apperrors.CodeSignWithEcdsaFailed, "failed to pack signature", err)
	}
	sigHex := "0x" + hex.EncodeToString(packed)

	if err := a.ledger.ReserveWithheld(token, chain, account, dc, amount, sigHex, n); err != nil {
		return Result{}, err
	}

	return Result{
		Hash:      "0x" + hex.EncodeToString(h[:]),
		Signature: sigHex,
		Nonce:     n,
		Amount:    amount,
	}, nil
}

// PublicKey exposes the oracle's compressed public key for the
// Authorizer's key id, backing the public_key endpoint.
func (a *Authorizer) PublicKey() ([]byte, error) {
	return a.oracle.DerivePublicKey(a.keyID, a.derivationPath)
}

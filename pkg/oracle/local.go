package oracle

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// LocalOracle is a concrete SigningOracle that derives one secp256k1
// keypair per KeyID from a server seed via HKDF-SHA256. It stands in for
// an external ECDSA management service; a production deployment swaps
// this for a KMS/HSM-backed SigningOracle implementation of the same
// interface.
type LocalOracle struct {
	seed []byte

	mu   sync.Mutex
	keys map[string]*ecdsa.PrivateKey
}

// NewLocalOracle constructs a LocalOracle from a server seed. The seed
// must be at least 32 bytes; it is never logged or returned to callers.
func NewLocalOracle(seed []byte) (*LocalOracle, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("server seed must be at least 32 bytes")
	}
	return &LocalOracle{
		seed: append([]byte(nil), seed...),
		keys: make(map[string]*ecdsa.PrivateKey),
	}, nil
}

func derivationInfo(keyID KeyID, derivationPath []string) []byte {
	return []byte("remittance-oracle-key|" + string(keyID) + "|" + strings.Join(derivationPath, "/"))
}

func (o *LocalOracle) privateKey(keyID KeyID, derivationPath []string) (*ecdsa.PrivateKey, error) {
	cacheKey := string(derivationInfo(keyID, derivationPath))

	o.mu.Lock()
	defer o.mu.Unlock()

	if priv, ok := o.keys[cacheKey]; ok {
		return priv, nil
	}

	hkdfReader := hkdf.New(sha256.New, o.seed, nil, derivationInfo(keyID, derivationPath))
	seedBytes := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, seedBytes); err != nil {
		return nil, fmt.Errorf("derive key seed: %w", err)
	}

	priv, err := crypto.ToECDSA(seedBytes)
	if err != nil {
		return nil, fmt.Errorf("derive ecdsa key: %w", err)
	}

	o.keys[cacheKey] = priv
	return priv, nil
}

// DerivePublicKey returns the compressed SEC1 public key for keyID.
func (o *LocalOracle) DerivePublicKey(keyID KeyID, derivationPath []string) ([]byte, error) {
	priv, err := o.privateKey(keyID, derivationPath)
	if err != nil {
		return nil, apperrors.OracleFailure(apperrors.CodeSignWithEcdsaFailed, "failed to derive public key", err)
	}
	return crypto.CompressPubkey(&priv.PublicKey), nil
}

// SignHash signs a 32-byte message hash and returns the raw 64-byte (r||s)
// signature, dropping the recovery byte go-ethereum's crypto.Sign appends.
func (o *LocalOracle) SignHash(hash [32]byte, keyID KeyID, derivationPath []string) ([]byte, error) {
	priv, err := o.privateKey(keyID, derivationPath)
	if err != nil {
		return nil, apperrors.OracleFailure(apperrors.CodeSignWithEcdsaFailed, "failed to derive signing key", err)
	}
	sig, err := crypto.Sign(hash[:], priv)
	if err != nil {
		return nil, apperrors.OracleFailure(apperrors.CodeSignWithEcdsaFailed, "failed to sign hash", err)
	}
	return sig[:64], nil
}

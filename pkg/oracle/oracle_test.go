package oracle

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	return seed
}

func TestLocalOracleDeterministicPerKeyID(t *testing.T) {
	o, err := NewLocalOracle(testSeed(t))
	require.NoError(t, err)

	pk1, err := o.DerivePublicKey(KeyIDTestLocal, nil)
	require.NoError(t, err)
	pk2, err := o.DerivePublicKey(KeyIDTestLocal, nil)
	require.NoError(t, err)
	assert.Equal(t, pk1, pk2, "same key id must derive the same key within a process")

	pk3, err := o.DerivePublicKey(KeyIDProduction, nil)
	require.NoError(t, err)
	assert.NotEqual(t, pk1, pk3, "different key ids must derive different keys")
}

func TestSignHashAndRecover(t *testing.T) {
	o, err := NewLocalOracle(testSeed(t))
	require.NoError(t, err)

	pubKey, err := o.DerivePublicKey(KeyIDTestLocal, nil)
	require.NoError(t, err)

	message := "40000"
	hash := EthereumSignedMessageHash([]byte(message))

	rawSig, err := o.SignHash(hash, KeyIDTestLocal, nil)
	require.NoError(t, err)
	require.Len(t, rawSig, 64)

	packed, err := PackEVMSignature(hash, rawSig, pubKey)
	require.NoError(t, err)
	require.Len(t, packed, 65)
	assert.True(t, packed[64] == 27 || packed[64] == 28)

	uncompressed, err := crypto.DecompressPubkey(pubKey)
	require.NoError(t, err)
	wantAddr := strings.ToLower(crypto.PubkeyToAddress(*uncompressed).Hex())

	gotAddr, err := RecoverAddressFromEthSignature("0x"+hex.EncodeToString(packed), message)
	require.NoError(t, err)
	assert.Equal(t, wantAddr, gotAddr)
}

func TestRecoverAddressFromEthSignatureRejectsBadLength(t *testing.T) {
	_, err := RecoverAddressFromEthSignature("0xdead", "hello")
	require.Error(t, err)
}

func TestRecoverAddressMismatchOnTamperedMessage(t *testing.T) {
	o, err := NewLocalOracle(testSeed(t))
	require.NoError(t, err)
	pubKey, err := o.DerivePublicKey(KeyIDTestLocal, nil)
	require.NoError(t, err)

	hash := EthereumSignedMessageHash([]byte("500"))
	rawSig, err := o.SignHash(hash, KeyIDTestLocal, nil)
	require.NoError(t, err)
	packed, err := PackEVMSignature(hash, rawSig, pubKey)
	require.NoError(t, err)

	uncompressed, err := crypto.DecompressPubkey(pubKey)
	require.NoError(t, err)
	signerAddr := strings.ToLower(crypto.PubkeyToAddress(*uncompressed).Hex())

	gotAddr, err := RecoverAddressFromEthSignature("0x"+hex.EncodeToString(packed), "501")
	require.NoError(t, err)
	assert.NotEqual(t, signerAddr, gotAddr)
}

package httpapi

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/authz"
	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
	"github.com/chainsafe/remittance-ledger/pkg/nonce"
	"github.com/chainsafe/remittance-ledger/pkg/oracle"
	"github.com/chainsafe/remittance-ledger/pkg/registry"
	"github.com/chainsafe/remittance-ledger/pkg/service"
)

const (
	hmacSecret = "test-secret"
	owner      = "owner-principal"
	pdc        = "pdc-1"
	testToken  = "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c"
	testChain  = "ethereum:5"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	o, err := oracle.NewLocalOracle(seed)
	require.NoError(t, err)
	n, err := nonce.New()
	require.NoError(t, err)

	l := ledger.New()
	az := authz.New(l, o, n, oracle.KeyIDTestLocal, []string{"m"})
	svc := service.New(l, registry.New(), registry.NewDCRegistry(), az, nil, owner, zap.NewNop())

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	RegisterRoutes(r, svc, nil, hmacSecret, zap.NewNop())
	return r
}

func mintToken(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	signed, err := tok.SignedString([]byte(hmacSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func wireError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var got struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got.Error
}

func newAccountHolder(t *testing.T) (*ecdsa.PrivateKey, ledgertypes.Wallet) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	w, err := ledgertypes.ParseWallet(addr.Hex())
	require.NoError(t, err)
	return priv, w
}

func proveAmount(t *testing.T, priv *ecdsa.PrivateKey, amount uint64) string {
	t.Helper()
	hash := oracle.EthereumSignedMessageHash([]byte(strconv.FormatUint(amount, 10)))
	sig, err := crypto.Sign(hash[:], priv)
	require.NoError(t, err)
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

func registerPDC(t *testing.T, h http.Handler) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/subscribe_to_pdc", mintToken(t, owner),
		map[string]string{"principal": pdc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func publishDeposit(t *testing.T, h http.Handler, account string, amount int64) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/update_remittance", mintToken(t, pdc),
		map[string]any{"events": []map[string]any{{
			"event_name": "FundsDeposited",
			"account":    account,
			"amount":     amount,
			"chain":      testChain,
			"token":      testToken,
		}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateRemittanceRequiresBearerToken(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/update_remittance", "", map[string]any{"events": []any{}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.CodeNotAllowed, wireError(t, rec))
}

func TestPublisherFlowDepositThenBalance(t *testing.T) {
	h := newTestHandler(t)
	registerPDC(t, h)

	_, account := newAccountHolder(t)
	publishDeposit(t, h, account.String(), 100000)

	path := fmt.Sprintf("/balance/available?token=%s&chain=%s&account=%s&dc=%s",
		testToken, testChain, account.String(), pdc)
	rec := doJSON(t, h, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(100000), got["available"])
}

func TestRemitOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	registerPDC(t, h)

	priv, account := newAccountHolder(t)
	publishDeposit(t, h, account.String(), 100000)

	remitBody := map[string]any{
		"token":   testToken,
		"chain":   testChain,
		"account": account.String(),
		"dc":      pdc,
		"amount":  40000,
		"proof":   proveAmount(t, priv, 40000),
	}
	rec := doJSON(t, h, http.MethodPost, "/remit", "", remitBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first struct {
		Hash      string `json:"hash"`
		Signature string `json:"signature"`
		Nonce     uint64 `json:"nonce"`
		Amount    uint64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotZero(t, first.Nonce)
	assert.Equal(t, uint64(40000), first.Amount)
	assert.Len(t, first.Signature, 2+65*2)

	// A replay must return the same authorization.
	rec = doJSON(t, h, http.MethodPost, "/remit", "", remitBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var second struct {
		Nonce     uint64 `json:"nonce"`
		Signature string `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.Nonce, second.Nonce)
	assert.Equal(t, first.Signature, second.Signature)

	// Confirm on-chain withdrawal, then fetch the receipt by nonce.
	rec = doJSON(t, h, http.MethodPost, "/update_remittance", mintToken(t, pdc),
		map[string]any{"events": []map[string]any{{
			"event_name": "FundsWithdrawn",
			"account":    account.String(),
			"amount":     40000,
			"chain":      testChain,
			"token":      testToken,
		}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	receiptPath := fmt.Sprintf("/receipt?dc=%s&nonce=%d", pdc, first.Nonce)
	rec = doJSON(t, h, http.MethodGet, receiptPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var receipt struct {
		Amount uint64 `json:"Amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, uint64(40000), receipt.Amount)
}

func TestRemitRejectsUnknownChain(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/remit", "", map[string]any{
		"token":   testToken,
		"chain":   "solana:1",
		"account": testToken,
		"dc":      pdc,
		"amount":  100,
		"proof":   "0x00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidChain, wireError(t, rec))
}

func TestReceiptNotFound(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/receipt?dc=pdc-1&nonce=999", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.CodeReceiptNotFound, wireError(t, rec))
}

func TestPublicKeyEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/public_key", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got["sec1_pk"], 2+33*2)
	assert.Len(t, got["ethereum_address"], 2+20*2)
}

func TestOwnerOnlyRegistrationOverHTTP(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/subscribe_to_pdc", mintToken(t, "mallory"),
		map[string]string{"principal": pdc})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.CodeNotAllowed, wireError(t, rec))
}

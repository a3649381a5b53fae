// Package httpapi exposes the remittance ledger's pkg/service operations
// over HTTP: a RegisterRoutes(r chi.Router, ...) constructor and
// apphttp.HandleError-wrapped handler methods that return errors instead
// of writing them directly.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apphttp "github.com/chainsafe/remittance-ledger/pkg/app/http"
	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/auth"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
	"github.com/chainsafe/remittance-ledger/pkg/service"
)

const maxBodyBytes = 1 << 20

// HTTP wraps a *service.Service to provide the remittance ledger's HTTP
// endpoints.
type HTTP struct {
	svc    *service.Service
	logger *zap.Logger
}

// RegisterRoutes registers the remittance ledger's HTTP endpoints on r.
// Publisher and owner endpoints (update_remittance, subscribe,
// subscribe_to_dc, subscribe_to_pdc, set_remittance_canister) sit behind
// PrincipalMiddleware, which resolves the caller's principal from the
// bearer token. remit and the balance/receipt readers are client-facing:
// a remit caller proves account ownership with its EVM signature, not a
// bearer token.
func RegisterRoutes(r chi.Router, svc *service.Service, validator *auth.JWTValidator, hmacKey string, logger *zap.Logger) {
	h := &HTTP{svc: svc, logger: logger}

	r.Group(func(r chi.Router) {
		r.Use(PrincipalMiddleware(validator, hmacKey))

		r.Post("/update_remittance", apphttp.HandleError(h.updateRemittance))
		r.Post("/subscribe", apphttp.HandleError(h.subscribe))
		r.Post("/set_remittance_canister", apphttp.HandleError(h.setRemittanceCanister))
		r.Post("/subscribe_to_dc", apphttp.HandleError(h.subscribeToDC))
		r.Post("/subscribe_to_pdc", apphttp.HandleError(h.subscribeToPDC))
	})

	r.Post("/remit", apphttp.HandleError(h.remit))
	r.Get("/balance/available", apphttp.HandleError(h.getAvailableBalance))
	r.Get("/balance/withheld", apphttp.HandleError(h.getWithheldBalance))
	r.Get("/balance/canister_pool", apphttp.HandleError(h.getCanisterBalance))
	r.Get("/receipt", apphttp.HandleError(h.getReceipt))
	r.Get("/public_key", apphttp.HandleError(h.publicKey))
	r.Get("/name", apphttp.HandleError(h.name))
	r.Get("/owner", apphttp.HandleError(h.owner))
}

func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.MalformedInput(apperrors.CodeJSONDeserializationFailed, "failed to read request body", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.MalformedInput(apperrors.CodeJSONDeserializationFailed, "invalid JSON", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// updateRemittanceRequest is the wire envelope update_remittance accepts:
// a JSON array of events published under the caller's own principal.
type updateRemittanceRequest struct {
	Events []ledgertypes.Event `json:"events"`
}

func (h *HTTP) updateRemittance(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.AccessControl(apperrors.CodeNotAllowed, "missing authenticated principal", nil)
	}

	var req updateRemittanceRequest
	if err := readJSON(r, &req); err != nil {
		return err
	}

	if err := h.svc.UpdateRemittance(r.Context(), req.Events, principal); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": len(req.Events)})
	return nil
}

func (h *HTTP) subscribe(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.AccessControl(apperrors.CodeNotAllowed, "missing authenticated principal", nil)
	}
	if err := h.svc.Subscribe(principal); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": true})
	return nil
}

type principalRequest struct {
	Principal string `json:"principal"`
}

func (h *HTTP) setRemittanceCanister(w http.ResponseWriter, r *http.Request) error {
	caller, _ := auth.PrincipalFromContext(r.Context())
	var req principalRequest
	if err := readJSON(r, &req); err != nil {
		return err
	}
	if err := h.svc.SetRemittanceCanister(caller, req.Principal); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

func (h *HTTP) subscribeToDC(w http.ResponseWriter, r *http.Request) error {
	caller, _ := auth.PrincipalFromContext(r.Context())
	var req principalRequest
	if err := readJSON(r, &req); err != nil {
		return err
	}
	if err := h.svc.SubscribeToDC(caller, req.Principal); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

func (h *HTTP) subscribeToPDC(w http.ResponseWriter, r *http.Request) error {
	caller, _ := auth.PrincipalFromContext(r.Context())
	var req principalRequest
	if err := readJSON(r, &req); err != nil {
		return err
	}
	if err := h.svc.SubscribeToPDC(caller, req.Principal); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	return nil
}

// remitRequest is the wire request for remit(). The caller proves control
// of account by signing the decimal amount string with the account's own
// EVM key; dc names the data source whose balance pool the withdrawal
// draws from.
type remitRequest struct {
	Token   string `json:"token"`
	Chain   string `json:"chain"`
	Account string `json:"account"`
	DC      string `json:"dc"`
	Amount  uint64 `json:"amount"`
	Proof   string `json:"proof"`
}

type remitResponse struct {
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	Nonce     uint64 `json:"nonce"`
	Amount    uint64 `json:"amount"`
}

func (h *HTTP) remit(w http.ResponseWriter, r *http.Request) error {
	var req remitRequest
	if err := readJSON(r, &req); err != nil {
		return err
	}

	token, err := ledgertypes.ParseWallet(req.Token)
	if err != nil {
		return err
	}
	account, err := ledgertypes.ParseWallet(req.Account)
	if err != nil {
		return err
	}
	chain, err := ledgertypes.ParseChain(req.Chain)
	if err != nil {
		return err
	}

	res, err := h.svc.Remit(token, chain, account, ledgertypes.SourcePrincipal(req.DC), req.Amount, req.Proof)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, remitResponse{Hash: res.Hash, Signature: res.Signature, Nonce: res.Nonce, Amount: res.Amount})
	return nil
}

func parseBalanceQuery(r *http.Request) (token, account ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal, err error) {
	q := r.URL.Query()
	token, err = ledgertypes.ParseWallet(q.Get("token"))
	if err != nil {
		return
	}
	account, err = ledgertypes.ParseWallet(q.Get("account"))
	if err != nil {
		return
	}
	chain, err = ledgertypes.ParseChain(q.Get("chain"))
	if err != nil {
		return
	}
	dc = ledgertypes.SourcePrincipal(q.Get("dc"))
	return
}

func (h *HTTP) getAvailableBalance(w http.ResponseWriter, r *http.Request) error {
	token, account, chain, dc, err := parseBalanceQuery(r)
	if err != nil {
		return err
	}
	bal := h.svc.GetAvailableBalance(token, chain, account, dc)
	writeJSON(w, http.StatusOK, map[string]uint64{"available": bal})
	return nil
}

func (h *HTTP) getWithheldBalance(w http.ResponseWriter, r *http.Request) error {
	token, account, chain, dc, err := parseBalanceQuery(r)
	if err != nil {
		return err
	}
	bal := h.svc.GetWithheldBalance(token, chain, account, dc)
	writeJSON(w, http.StatusOK, map[string]uint64{"withheld": bal})
	return nil
}

func (h *HTTP) getCanisterBalance(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	token, err := ledgertypes.ParseWallet(q.Get("token"))
	if err != nil {
		return err
	}
	chain, err := ledgertypes.ParseChain(q.Get("chain"))
	if err != nil {
		return err
	}
	dc := ledgertypes.SourcePrincipal(q.Get("dc"))
	writeJSON(w, http.StatusOK, map[string]uint64{"canister_pool": h.svc.GetCanisterBalance(token, chain, dc)})
	return nil
}

func (h *HTTP) getReceipt(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	dc := ledgertypes.SourcePrincipal(q.Get("dc"))
	nonce, err := strconv.ParseUint(q.Get("nonce"), 10, 64)
	if err != nil {
		// An unparseable nonce cannot name any stored receipt.
		return apperrors.LedgerState(apperrors.CodeReceiptNotFound, "nonce must be a non-negative integer", err)
	}
	receipt, err := h.svc.GetReceipt(dc, nonce)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, receipt)
	return nil
}

func (h *HTTP) publicKey(w http.ResponseWriter, r *http.Request) error {
	key, err := h.svc.PublicKey()
	if err != nil {
		return err
	}
	pub, err := crypto.DecompressPubkey(key)
	if err != nil {
		return apperrors.OracleFailure(apperrors.CodeSignWithEcdsaFailed, "failed to decompress public key", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"sec1_pk":          "0x" + hex.EncodeToString(key),
		"ethereum_address": strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()),
	})
	return nil
}

// name and owner are lightweight identity probes a deployed ledger
// exposes so operators and downstream dashboards can confirm which
// process and principal they are talking to without decoding a JWT.
func (h *HTTP) name(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"name": "remittance-ledger"})
	return nil
}

func (h *HTTP) owner(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"owner": h.svc.Owner})
	return nil
}

// Health writes a liveness probe response, wired directly (not through
// HandleError) since it never fails.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RequestIDMiddleware stamps every inbound request with a correlation ID
// and carries it through the context and the response header so log lines
// and client reports can be matched up.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := auth.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

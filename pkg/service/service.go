// Package service wires the remittance ledger's components (pkg/ledger,
// pkg/validator, pkg/registry, pkg/authz) into the operations the
// transport layer exposes: update_remittance, subscribe_to_dc and
// subscribe_to_pdc, remit, the balance/receipt/public_key readers, and
// owner/name introspection.
//
// It is a thin orchestration layer that owns no state of its own beyond
// what it wires together; logging and metrics happen here so the ledger
// and authorizer stay free of observability concerns.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/remittance-ledger/internal/metrics"
	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/auth"
	"github.com/chainsafe/remittance-ledger/pkg/authz"
	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
	"github.com/chainsafe/remittance-ledger/pkg/registry"
	"github.com/chainsafe/remittance-ledger/pkg/validator"
)

// Clock returns the current time in unix nanoseconds, used to stamp
// withdrawal receipts. Production wiring passes UnixNanoClock; tests pass
// a fixed value.
type Clock func() uint64

// UnixNanoClock is the process-clock Clock used in production.
func UnixNanoClock() uint64 {
	return uint64(time.Now().UnixNano())
}

// Service is the single entrypoint the transport layer calls into. One
// Service is constructed per process and owns the ledger, the two
// registries, and the authorization state machine.
type Service struct {
	Owner string

	ledger *ledger.Ledger
	subs   *registry.SubscriptionRegistry
	dcs    *registry.DCRegistry
	authz  *authz.Authorizer
	clock  Clock
	logger *zap.Logger
}

// New constructs a Service. owner is the principal allowed to call the
// owner-only operations (set_remittance_canister, subscribe_to_dc,
// subscribe_to_pdc), fixed at process start.
func New(l *ledger.Ledger, subs *registry.SubscriptionRegistry, dcs *registry.DCRegistry, az *authz.Authorizer, clock Clock, owner string, logger *zap.Logger) *Service {
	if clock == nil {
		clock = UnixNanoClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Owner:  owner,
		ledger: l,
		subs:   subs,
		dcs:    dcs,
		authz:  az,
		clock:  clock,
		logger: logger,
	}
}

func (s *Service) requireOwner(caller string) error {
	if caller != s.Owner {
		metrics.AccessDenied.WithLabelValues("owner_only").Inc()
		return apperrors.AccessControl(apperrors.CodeNotAllowed, "caller is not the service owner", nil)
	}
	return nil
}

// SetRemittanceCanister records the downstream subscriber principal.
// Owner-only.
func (s *Service) SetRemittanceCanister(caller, principal string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.subs.SetRemittanceCanister(principal)
	return nil
}

// Subscribe is invoked by the principal previously recorded via
// SetRemittanceCanister to complete the handshake.
func (s *Service) Subscribe(caller string) error {
	return s.subs.Subscribe(caller)
}

// SubscribeToDC whitelists principal as a plain data collector
// (owner-only), then completes the publisher-side subscription handshake
// on its behalf so the new collector is immediately subscribed.
func (s *Service) SubscribeToDC(caller, principal string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.dcs.RegisterDC(principal)
	s.subs.SetRemittanceCanister(principal)
	if err := s.subs.Subscribe(principal); err != nil {
		return err
	}
	s.logger.Info("registered data collector", zap.String("principal", principal))
	return nil
}

// SubscribeToPDC whitelists principal as a protocol data collector
// (owner-only) and completes the subscription handshake the same way
// SubscribeToDC does. RegisterPDC registers the plain-DC relation first,
// so a protocol collector is always also a plain collector.
func (s *Service) SubscribeToPDC(caller, principal string) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	s.dcs.RegisterPDC(principal)
	s.subs.SetRemittanceCanister(principal)
	if err := s.subs.Subscribe(principal); err != nil {
		return err
	}
	s.logger.Info("registered protocol data collector", zap.String("principal", principal))
	return nil
}

// UpdateRemittance validates and applies a batch of events published by
// dcPrincipal. Only a registered data collector may publish; the batch is
// validated in full before any ledger mutation, and rejected atomically on
// the first failure.
func (s *Service) UpdateRemittance(ctx context.Context, events []ledgertypes.Event, dcPrincipal string) error {
	dc := ledgertypes.SourcePrincipal(dcPrincipal)

	if err := s.dcs.OnlyPublisher(dcPrincipal); err != nil {
		metrics.AccessDenied.WithLabelValues("update_remittance").Inc()
		return err
	}

	models, err := ledgertypes.ParseEventsToDataModels(events)
	if err != nil {
		metrics.BatchesRejected.WithLabelValues(apperrors.CodeParseEventFailed).Inc()
		return err
	}

	isPDC := s.dcs.IsProtocolDC(dcPrincipal)
	if err := validator.Validate(s.ledger, models, dc, isPDC); err != nil {
		metrics.BatchesRejected.WithLabelValues(apperrors.Code(err)).Inc()
		s.logger.Warn("rejected event batch",
			zap.String("dc", dcPrincipal),
			zap.Int("events", len(models)),
			zap.String("reason", apperrors.Code(err)),
		)
		return err
	}

	if err := s.ledger.ApplyBatch(models, dc, s.clock); err != nil {
		metrics.BatchesRejected.WithLabelValues(apperrors.Code(err)).Inc()
		return err
	}

	for _, m := range models {
		metrics.EventsIngested.WithLabelValues(m.Action.String(), dcPrincipal).Inc()
		if m.Action == ledgertypes.ActionWithdraw {
			metrics.ReceiptsTotal.WithLabelValues(dcPrincipal).Inc()
		}
	}
	s.refreshGauges(models, dc)
	s.logger.Info("applied event batch",
		zap.String("dc", dcPrincipal),
		zap.Int("events", len(models)),
		zap.String("request_id", requestIDFrom(ctx)),
	)
	return nil
}

func requestIDFrom(ctx context.Context) string {
	id, _ := auth.RequestIDFromContext(ctx)
	return id
}

func (s *Service) refreshGauges(models []ledgertypes.DataModel, dc ledgertypes.SourcePrincipal) {
	seen := make(map[ledger.AvailableKey]bool)
	for _, m := range models {
		ak := ledger.AvailableKey{Token: m.Token, Chain: m.Chain, Account: m.Account, DC: dc}
		if seen[ak] {
			continue
		}
		seen[ak] = true
		metrics.AvailableBalance.WithLabelValues(m.Token.String(), m.Chain.String(), string(dc)).
			Set(float64(s.ledger.Available(m.Token, m.Chain, m.Account, dc)))
		metrics.WithheldBalance.WithLabelValues(m.Token.String(), m.Chain.String(), string(dc)).
			Set(float64(s.ledger.Withheld(m.Token, m.Chain, m.Account, dc)))
		metrics.CanisterPoolBalance.WithLabelValues(string(dc)).
			Set(float64(s.ledger.CanisterPool(m.Token, m.Chain, dc)))
	}
}

// Remit issues (or replays) a signed withdrawal authorization, delegating
// to the Authorizer and recording the outcome metric and balance gauges.
func (s *Service) Remit(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64, proof string) (authz.Result, error) {
	start := time.Now()
	res, err := s.authz.Remit(token, chain, account, dc, amount, proof)
	metrics.SignDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RemitCalls.WithLabelValues("error").Inc()
		category := apperrors.CategoryGeneralError.String()
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			category = svcErr.Category.String()
		}
		metrics.ErrorsTotal.WithLabelValues("authz", category).Inc()
		return authz.Result{}, err
	}
	metrics.RemitCalls.WithLabelValues("ok").Inc()
	metrics.AvailableBalance.WithLabelValues(token.String(), chain.String(), string(dc)).
		Set(float64(s.ledger.Available(token, chain, account, dc)))
	metrics.WithheldBalance.WithLabelValues(token.String(), chain.String(), string(dc)).
		Set(float64(s.ledger.Withheld(token, chain, account, dc)))
	s.logger.Info("issued withdrawal authorization",
		zap.String("account", account.String()),
		zap.String("dc", string(dc)),
		zap.Uint64("amount", amount),
		zap.Uint64("nonce", res.Nonce),
	)
	return res, nil
}

// GetAvailableBalance returns the account's available balance.
func (s *Service) GetAvailableBalance(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64 {
	return s.ledger.Available(token, chain, account, dc)
}

// GetWithheldBalance returns the sum of the account's outstanding withheld
// amounts.
func (s *Service) GetWithheldBalance(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64 {
	return s.ledger.Withheld(token, chain, account, dc)
}

// GetCanisterBalance returns the data source's custodial pool balance.
func (s *Service) GetCanisterBalance(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) uint64 {
	return s.ledger.CanisterPool(token, chain, dc)
}

// GetReceipt returns the confirmed-withdrawal receipt stored under
// (dc, nonce), or RECIEPT_NOT_FOUND.
func (s *Service) GetReceipt(dc ledgertypes.SourcePrincipal, nonce uint64) (ledger.RemittanceReceipt, error) {
	r, ok := s.ledger.Receipt(dc, nonce)
	if !ok {
		return ledger.RemittanceReceipt{}, apperrors.LedgerState(apperrors.CodeReceiptNotFound, "no receipt for this (dc, nonce)", nil)
	}
	return r, nil
}

// PublicKey returns the oracle's compressed SEC1 public key for the
// configured signing key.
func (s *Service) PublicKey() ([]byte, error) {
	return s.authz.PublicKey()
}

// Ledger exposes the underlying ledger for read-only diagnostic endpoints.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// DCRegistry exposes the data-collector registry for pkg/snapshot.
func (s *Service) DCRegistry() *registry.DCRegistry {
	return s.dcs
}

// Subscriptions exposes the subscription registry for pkg/snapshot.
func (s *Service) Subscriptions() *registry.SubscriptionRegistry {
	return s.subs
}

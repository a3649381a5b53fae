// Package registry holds the principal bookkeeping: the subscription
// relation between a remittance ledger and its downstream subscriber, and
// the data-collector/protocol-data-collector registries that gate
// update_remittance.
//
// Publishers and subscribers register with each other mutually; that
// cycle is modeled as two independent registries keyed by principal
// rather than by holding direct object references - the principal id is
// the relation.
package registry

import (
	"sync"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// SubscriberRecord is the single outstanding subscription a publisher
// process tracks at a time.
type SubscriberRecord struct {
	Principal  string
	Subscribed bool
}

// SubscriptionRegistry models the owner-gated "this process has a
// registered subscriber" relation. set_remittance_canister records the
// principal (owner-only); subscribe() is invoked by the caller claiming
// that identity and flips Subscribed to true.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	record *SubscriberRecord
}

// New constructs an empty SubscriptionRegistry.
func New() *SubscriptionRegistry {
	return &SubscriptionRegistry{}
}

// SetRemittanceCanister records the subscriber principal, owner-only at
// the caller (HTTP middleware / access-control layer, not this package).
func (s *SubscriptionRegistry) SetRemittanceCanister(principal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &SubscriberRecord{Principal: principal, Subscribed: false}
}

// Subscribe is invoked by caller, who must match the principal previously
// recorded by SetRemittanceCanister.
func (s *SubscriptionRegistry) Subscribe(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return apperrors.AccessControl(apperrors.CodeRemittanceCanisterNotInitialized,
			"no remittance canister has been set", nil)
	}
	if caller != s.record.Principal {
		return apperrors.AccessControl(apperrors.CodeRemittanceCanisterNotWhitelisted,
			"caller does not match the registered remittance canister", nil)
	}
	s.record.Subscribed = true
	return nil
}

// IsSubscribed reports whether caller is the registered, subscribed
// principal.
func (s *SubscriptionRegistry) IsSubscribed(caller string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record != nil && caller == s.record.Principal && s.record.Subscribed
}

// Record returns a copy of the current subscriber record, or nil if none
// has been set. Used by pkg/snapshot to persist subscription state.
func (s *SubscriptionRegistry) Record() *SubscriberRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return nil
	}
	cp := *s.record
	return &cp
}

// Restore replaces the registry's state wholesale, used by pkg/snapshot
// after a process restart.
func (s *SubscriptionRegistry) Restore(record *SubscriberRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record == nil {
		s.record = nil
		return
	}
	cp := *record
	s.record = &cp
}

// DCRegistry tracks which principals may publish events to the ledger
// (the only_publisher predicate) and which of those are protocol data
// collectors.
type DCRegistry struct {
	mu         sync.RWMutex
	dc         map[string]bool
	protocolDC map[string]bool
}

// NewDCRegistry constructs an empty DCRegistry.
func NewDCRegistry() *DCRegistry {
	return &DCRegistry{
		dc:         make(map[string]bool),
		protocolDC: make(map[string]bool),
	}
}

// RegisterDC whitelists principal as a plain data collector.
func (r *DCRegistry) RegisterDC(principal string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dc[principal] = true
}

// RegisterPDC whitelists principal as a protocol data collector. The
// plain-DC relation is registered first, so a protocol collector is
// always also a plain collector.
func (r *DCRegistry) RegisterPDC(principal string) {
	r.RegisterDC(principal)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocolDC[principal] = true
}

// IsRegistered reports whether principal may publish to update_remittance at all.
func (r *DCRegistry) IsRegistered(principal string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dc[principal]
}

// IsProtocolDC reports whether principal is registered as a protocol data collector.
func (r *DCRegistry) IsProtocolDC(principal string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.protocolDC[principal]
}

// OnlyPublisher is the access-control predicate for update_remittance:
// only a registered data collector may publish.
func (r *DCRegistry) OnlyPublisher(principal string) error {
	if !r.IsRegistered(principal) {
		return apperrors.AccessControl(apperrors.CodeNotAllowed, "caller is not a registered data collector", nil)
	}
	return nil
}

// Principals returns the list of registered DC principals, used by
// pkg/snapshot to persist the registry. Order is not significant.
func (r *DCRegistry) Principals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.dc))
	for p := range r.dc {
		out = append(out, p)
	}
	return out
}

// ProtocolDCFlags returns a copy of the principal -> is_protocol_dc map,
// used by pkg/snapshot to persist the registry.
func (r *DCRegistry) ProtocolDCFlags() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.protocolDC))
	for k, v := range r.protocolDC {
		out[k] = v
	}
	return out
}

// Restore replaces the registry's state wholesale from persisted principal
// and protocol-DC-flag data, used after a process restart.
func (r *DCRegistry) Restore(principals []string, protocolDC map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dc = make(map[string]bool, len(principals))
	for _, p := range principals {
		r.dc[p] = true
	}
	r.protocolDC = make(map[string]bool, len(protocolDC))
	for k, v := range protocolDC {
		r.protocolDC[k] = v
	}
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

func TestSubscribeRequiresRemittanceCanisterSet(t *testing.T) {
	s := New()
	err := s.Subscribe("alice")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRemittanceCanisterNotInitialized, apperrors.Code(err))
}

func TestSubscribeRejectsWrongCaller(t *testing.T) {
	s := New()
	s.SetRemittanceCanister("alice")

	err := s.Subscribe("mallory")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRemittanceCanisterNotWhitelisted, apperrors.Code(err))
	assert.False(t, s.IsSubscribed("alice"))
}

func TestSubscribeThenIsSubscribed(t *testing.T) {
	s := New()
	s.SetRemittanceCanister("alice")

	assert.False(t, s.IsSubscribed("alice"))
	require.NoError(t, s.Subscribe("alice"))
	assert.True(t, s.IsSubscribed("alice"))
	assert.False(t, s.IsSubscribed("mallory"))
}

func TestSetRemittanceCanisterResetsSubscription(t *testing.T) {
	s := New()
	s.SetRemittanceCanister("alice")
	require.NoError(t, s.Subscribe("alice"))
	assert.True(t, s.IsSubscribed("alice"))

	s.SetRemittanceCanister("bob")
	assert.False(t, s.IsSubscribed("bob"))
	assert.False(t, s.IsSubscribed("alice"))
}

func TestSubscriptionRegistryRestoreRoundTrip(t *testing.T) {
	s := New()
	s.SetRemittanceCanister("alice")
	require.NoError(t, s.Subscribe("alice"))

	rec := s.Record()
	require.NotNil(t, rec)

	s2 := New()
	s2.Restore(rec)
	assert.True(t, s2.IsSubscribed("alice"))
}

func TestRegisterDCAndOnlyPublisher(t *testing.T) {
	r := NewDCRegistry()
	assert.Error(t, r.OnlyPublisher("dc-1"))

	r.RegisterDC("dc-1")
	assert.NoError(t, r.OnlyPublisher("dc-1"))
	assert.True(t, r.IsRegistered("dc-1"))
	assert.False(t, r.IsProtocolDC("dc-1"))
}

func TestRegisterPDCAlsoRegistersAsDC(t *testing.T) {
	r := NewDCRegistry()
	r.RegisterPDC("pdc-1")

	assert.True(t, r.IsRegistered("pdc-1"))
	assert.True(t, r.IsProtocolDC("pdc-1"))
	assert.NoError(t, r.OnlyPublisher("pdc-1"))
}

func TestOnlyPublisherRejectsUnregistered(t *testing.T) {
	r := NewDCRegistry()
	r.RegisterDC("dc-1")

	err := r.OnlyPublisher("dc-2")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotAllowed, apperrors.Code(err))
}

func TestDCRegistryRestoreRoundTrip(t *testing.T) {
	r := NewDCRegistry()
	r.RegisterDC("dc-1")
	r.RegisterPDC("pdc-1")

	r2 := NewDCRegistry()
	r2.Restore(r.Principals(), r.ProtocolDCFlags())

	assert.True(t, r2.IsRegistered("dc-1"))
	assert.True(t, r2.IsRegistered("pdc-1"))
	assert.True(t, r2.IsProtocolDC("pdc-1"))
	assert.False(t, r2.IsProtocolDC("dc-1"))
}

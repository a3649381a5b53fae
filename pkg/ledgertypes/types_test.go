package ledgertypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

func TestParseWallet(t *testing.T) {
	w, err := ParseWallet("0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	require.NoError(t, err)
	assert.Equal(t, "0xb24a305fdc9bcb412b8a78d3c0d22c77c3c0445c", w.String())

	_, err = ParseWallet("0xdead")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidAddressLength, apperrors.Code(err))
}

func TestWalletOrdering(t *testing.T) {
	a, _ := ParseWallet("0x0000000000000000000000000000000000000001")
	b, _ := ParseWallet("0x0000000000000000000000000000000000000002")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(a))
}

func TestParseChain(t *testing.T) {
	tests := []struct {
		in      string
		want    Chain
		wantErr bool
	}{
		{"ethereum:1", EthereumMainnet, false},
		{"ethereum:5", EthereumGoerli, false},
		{"polygon:137", PolygonMainnet, false},
		{"icp", Icp, false},
		{"icp:999", Icp, false},
		{"ethereum:2", Chain{}, true},
		{"solana:1", Chain{}, true},
		{"garbage", Chain{}, true},
	}
	for _, tt := range tests {
		got, err := ParseChain(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			assert.Equal(t, apperrors.CodeInvalidChain, apperrors.Code(err))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestChainStringRoundTrip(t *testing.T) {
	for _, c := range []Chain{EthereumMainnet, EthereumGoerli, PolygonMainnet, Icp} {
		s := c.String()
		parsed, err := ParseChain(s)
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
}

func TestEventToDataModelRoundTrip(t *testing.T) {
	e := Event{
		EventName: "FundsDeposited",
		Account:   "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c",
		Amount:    100000,
		Chain:     "ethereum:5",
		Token:     "0x0000000000000000000000000000000000000001",
	}
	dm, err := e.ToDataModel()
	require.NoError(t, err)
	assert.Equal(t, ActionDeposit, dm.Action)
	assert.Equal(t, int64(100000), dm.Amount)

	back, err := dm.ToEvent()
	require.NoError(t, err)
	assert.Equal(t, e.EventName, back.EventName)
	assert.Equal(t, e.Chain, back.Chain)
	assert.Equal(t, e.Amount, back.Amount)

	dm2, err := back.ToDataModel()
	require.NoError(t, err)
	assert.Equal(t, dm, dm2)
}

func TestNonAdjustAmountMustBePositive(t *testing.T) {
	e := Event{
		EventName: "FundsWithdrawn",
		Account:   "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c",
		Amount:    -5,
		Chain:     "ethereum:5",
		Token:     "0x0000000000000000000000000000000000000001",
	}
	_, err := e.ToDataModel()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeParseEventFailed, apperrors.Code(err))
}

func TestAdjustAllowsNegativeAmount(t *testing.T) {
	e := Event{
		EventName: "BalanceAdjusted",
		Account:   "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c",
		Amount:    -100,
		Chain:     "ethereum:5",
		Token:     "0x0000000000000000000000000000000000000001",
	}
	dm, err := e.ToDataModel()
	require.NoError(t, err)
	assert.Equal(t, int64(-100), dm.Amount)
}

func TestParseEventBatchRejectsMalformedJSON(t *testing.T) {
	_, err := ParseEventBatch([]byte(`[{"event_name":`))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeJSONDeserializationFailed, apperrors.Code(err))
}

func TestParseEventBatchRejectsNonArray(t *testing.T) {
	_, err := ParseEventBatch([]byte(`{"event_name":"FundsDeposited"}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeErrorParsingEventIntoDataModel, apperrors.Code(err))
}

func TestParseEventsToDataModelsRejectsWholeBatch(t *testing.T) {
	events := []Event{
		{EventName: "BalanceAdjusted", Account: "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c", Amount: 10, Chain: "ethereum:5", Token: "0x0000000000000000000000000000000000000001"},
		{EventName: "NotARealEvent", Account: "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c", Amount: 10, Chain: "ethereum:5", Token: "0x0000000000000000000000000000000000000001"},
	}
	_, err := ParseEventsToDataModels(events)
	require.Error(t, err)
}

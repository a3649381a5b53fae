package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
)

type fakeReader struct {
	available    map[string]uint64
	canisterPool map[string]uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{available: map[string]uint64{}, canisterPool: map[string]uint64{}}
}

func (f *fakeReader) availKey(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) string {
	return token.String() + "|" + chain.String() + "|" + account.String() + "|" + string(dc)
}

func (f *fakeReader) poolKey(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) string {
	return token.String() + "|" + chain.String() + "|" + string(dc)
}

func (f *fakeReader) Available(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64 {
	return f.available[f.availKey(token, chain, account, dc)]
}

func (f *fakeReader) CanisterPool(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) uint64 {
	return f.canisterPool[f.poolKey(token, chain, dc)]
}

func (f *fakeReader) setAvailable(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, v uint64) {
	f.available[f.availKey(token, chain, account, dc)] = v
}

func (f *fakeReader) setPool(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal, v uint64) {
	f.canisterPool[f.poolKey(token, chain, dc)] = v
}

func mustWallet(t *testing.T, s string) ledgertypes.Wallet {
	t.Helper()
	w, err := ledgertypes.ParseWallet(s)
	require.NoError(t, err)
	return w
}

func TestPlainDCAcceptsZeroSumAdjust(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	a2 := mustWallet(t, "0x1111111111111111111111111111111111111111")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("dc-1")

	r.setAvailable(token, chain, a1, dc, 100)
	r.setPool(token, chain, dc, 100)

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: -100, Action: ledgertypes.ActionAdjust},
		{Token: token, Chain: chain, Account: a2, Amount: 100, Action: ledgertypes.ActionAdjust},
	}
	assert.NoError(t, ValidatePlainDC(r, batch, dc))
}

func TestPlainDCRejectsNonZeroSum(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("dc-1")
	r.setAvailable(token, chain, a1, dc, 1000)

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: -100, Action: ledgertypes.ActionAdjust},
	}
	err := ValidatePlainDC(r, batch, dc)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSumAdjustAmountsNotZero, apperrors.Code(err))
}

func TestPlainDCRejectsNonAdjustAction(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("dc-1")

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: 10, Action: ledgertypes.ActionDeposit},
	}
	err := ValidatePlainDC(r, batch, dc)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidActionFound, apperrors.Code(err))
}

func TestPlainDCInsufficientUserBalance(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	a2 := mustWallet(t, "0x1111111111111111111111111111111111111111")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("dc-1")
	r.setAvailable(token, chain, a1, dc, 100)

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: -500, Action: ledgertypes.ActionAdjust},
		{Token: token, Chain: chain, Account: a2, Amount: 500, Action: ledgertypes.ActionAdjust},
	}
	err := ValidatePlainDC(r, batch, dc)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientUserBalance, apperrors.Code(err))
}

func TestPlainDCInsufficientCanisterBalance(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	a2 := mustWallet(t, "0x1111111111111111111111111111111111111111")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("dc-1")
	r.setAvailable(token, chain, a1, dc, 500)
	r.setPool(token, chain, dc, 10)

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: -500, Action: ledgertypes.ActionAdjust},
		{Token: token, Chain: chain, Account: a2, Amount: 500, Action: ledgertypes.ActionAdjust},
	}
	err := ValidatePlainDC(r, batch, dc)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInsufficientCanisterBalance, apperrors.Code(err))
}

func TestProtocolDCAllowsDepositWithoutSumConstraint(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("pdc-1")

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: 100000, Action: ledgertypes.ActionDeposit},
	}
	assert.NoError(t, ValidateProtocolDC(r, batch, dc))
}

func TestProtocolDCRejectsNonPositiveNonAdjust(t *testing.T) {
	r := newFakeReader()
	token := mustWallet(t, "0xB24a305FdC9BcB412B8a78D3c0D22C77c3c0445c")
	a1 := mustWallet(t, "0x9C810AcB42A085B72B9C0e7Bd8F1A89b9C816840")
	chain := ledgertypes.EthereumGoerli
	dc := ledgertypes.SourcePrincipal("pdc-1")

	batch := []ledgertypes.DataModel{
		{Token: token, Chain: chain, Account: a1, Amount: 0, Action: ledgertypes.ActionWithdraw},
	}
	err := ValidateProtocolDC(r, batch, dc)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNonAdjustAmountMustBeGT0, apperrors.Code(err))
}

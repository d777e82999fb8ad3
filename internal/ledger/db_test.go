package ledger_test

import (
	"context"
	"testing"

	"ms-event-ledger/internal/address"
	"ms-event-ledger/internal/ledger"
	"ms-event-ledger/internal/models"
	"ms-event-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fundedLamports = 1_000_000_000

func setupLedger(t *testing.T) (*ledger.DB, address.Pubkey, address.Pubkey) {
	t.Helper()
	ctx := context.Background()

	l := &ledger.DB{Bun: testutil.NewDB(t)}
	issuer, _ := testutil.NewIdentity(t)
	mint, _ := testutil.NewIdentity(t)

	_, err := l.Airdrop(ctx, issuer, fundedLamports)
	require.NoError(t, err)
	_, err = l.CreateMint(ctx, mint, 0, issuer, issuer)
	require.NoError(t, err)
	return l, issuer, mint
}

func TestRentExemptMinimum(t *testing.T) {
	assert.Equal(t, uint64(1_844_400), ledger.RentExemptMinimum(models.EventAccountSpace))
	assert.Equal(t, uint64(1_461_600), ledger.RentExemptMinimum(models.MintAccountSpace))
	assert.Equal(t, uint64(2_039_280), ledger.RentExemptMinimum(models.TokenAccountSpace))
}

func TestAirdropAndChargeRent(t *testing.T) {
	ctx := context.Background()
	l := &ledger.DB{Bun: testutil.NewDB(t)}
	payer, _ := testutil.NewIdentity(t)

	_, err := l.GetWallet(ctx, payer)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	err = l.ChargeRent(ctx, payer, models.TokenAccountSpace)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunding)

	_, err = l.Airdrop(ctx, payer, 1_000_000)
	require.NoError(t, err)
	wallet, err := l.Airdrop(ctx, payer, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), wallet.Lamports)

	err = l.ChargeRent(ctx, payer, models.TokenAccountSpace)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunding)

	_, err = l.Airdrop(ctx, payer, 100_000)
	require.NoError(t, err)
	require.NoError(t, l.ChargeRent(ctx, payer, models.TokenAccountSpace))

	wallet, err = l.GetWallet(ctx, payer)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_100_000-2_039_280), wallet.Lamports)
}

func TestCreateMint_Duplicate(t *testing.T) {
	ctx := context.Background()
	l, issuer, mint := setupLedger(t)

	_, err := l.CreateMint(ctx, mint, 0, issuer, issuer)
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	m, err := l.GetMint(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, issuer.String(), m.MintAuthority)
	assert.Zero(t, m.Supply)
}

func TestEnsureAssociatedTokenAccount(t *testing.T) {
	ctx := context.Background()
	l, issuer, mint := setupLedger(t)
	owner, _ := testutil.NewIdentity(t)

	first, err := l.EnsureAssociatedTokenAccount(ctx, owner, mint, issuer)
	require.NoError(t, err)
	second, err := l.EnsureAssociatedTokenAccount(ctx, owner, mint, issuer)
	require.NoError(t, err)
	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, owner.String(), first.Owner)

	ata, err := address.AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, ata.String(), first.Address)

	_, err = l.CreateAssociatedTokenAccount(ctx, owner, mint, issuer)
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	wallet, err := l.GetWallet(ctx, issuer)
	require.NoError(t, err)
	want := uint64(fundedLamports) - ledger.RentExemptMinimum(models.MintAccountSpace) - ledger.RentExemptMinimum(models.TokenAccountSpace)
	assert.Equal(t, want, wallet.Lamports, "rent is charged once")
}

func TestCreateTokenAccount_UnknownMint(t *testing.T) {
	ctx := context.Background()
	l, issuer, _ := setupLedger(t)
	owner, _ := testutil.NewIdentity(t)
	unknown, _ := testutil.NewIdentity(t)

	_, err := l.CreateAssociatedTokenAccount(ctx, owner, unknown, issuer)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestMintTo(t *testing.T) {
	ctx := context.Background()
	l, issuer, mint := setupLedger(t)
	owner, _ := testutil.NewIdentity(t)
	stranger, _ := testutil.NewIdentity(t)

	account, err := l.CreateAssociatedTokenAccount(ctx, owner, mint, issuer)
	require.NoError(t, err)
	to := address.MustParsePubkey(account.Address)

	require.NoError(t, l.MintTo(ctx, mint, to, 500, issuer))

	err = l.MintTo(ctx, mint, to, 1, stranger)
	assert.ErrorIs(t, err, ledger.ErrMintAuthorityMismatch)

	err = l.MintTo(ctx, mint, to, ledger.MaxAmount, issuer)
	assert.ErrorIs(t, err, ledger.ErrSupplyOverflow)

	balance, err := l.Balance(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), balance)

	m, err := l.GetMint(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), m.Supply)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l, issuer, mint := setupLedger(t)
	alice, _ := testutil.NewIdentity(t)
	bob, _ := testutil.NewIdentity(t)

	aliceAcc, err := l.CreateAssociatedTokenAccount(ctx, alice, mint, issuer)
	require.NoError(t, err)
	bobAcc, err := l.CreateAssociatedTokenAccount(ctx, bob, mint, issuer)
	require.NoError(t, err)
	from := address.MustParsePubkey(aliceAcc.Address)
	to := address.MustParsePubkey(bobAcc.Address)
	require.NoError(t, l.MintTo(ctx, mint, from, 100, issuer))

	t.Run("moves funds", func(t *testing.T) {
		require.NoError(t, l.Transfer(ctx, from, to, 40, alice))

		fromBal, _ := l.Balance(ctx, from)
		toBal, _ := l.Balance(ctx, to)
		assert.Equal(t, uint64(60), fromBal)
		assert.Equal(t, uint64(40), toBal)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := l.Transfer(ctx, from, to, 61, alice)
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

		fromBal, _ := l.Balance(ctx, from)
		assert.Equal(t, uint64(60), fromBal)
	})

	t.Run("wrong signer", func(t *testing.T) {
		err := l.Transfer(ctx, from, to, 1, bob)
		assert.ErrorIs(t, err, ledger.ErrOwnerMismatch)
	})

	t.Run("different mints", func(t *testing.T) {
		other, _ := testutil.NewIdentity(t)
		_, err := l.CreateMint(ctx, other, 0, issuer, issuer)
		require.NoError(t, err)
		otherAcc, err := l.CreateAssociatedTokenAccount(ctx, bob, other, issuer)
		require.NoError(t, err)

		err = l.Transfer(ctx, from, address.MustParsePubkey(otherAcc.Address), 1, alice)
		assert.ErrorIs(t, err, ledger.ErrMintMismatch)
	})

	t.Run("missing destination", func(t *testing.T) {
		nowhere, _ := testutil.NewIdentity(t)
		err := l.Transfer(ctx, from, nowhere, 1, alice)
		assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	})
}

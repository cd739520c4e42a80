package ledger_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ardanlabs/fundme/business/core/ledger"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Private keys used to sign orders in the tests. The account ids are derived
// from the keys so they don't need to be spelled out.
const (
	ownerKeyHex   = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	funderAKeyHex = "9f725cdbedbbe8bfe52afb9a01c96e0b35a1aa4b334b9ec6c8e79f9acee38f1a"
	funderBKeyHex = "6d5d499ed1d94e27dd1d2b90ebcd95b10b3528e0b2b1b27cf90e15ba243f5192"
)

// quoterFunc adapts a function to the ledger.Quoter interface.
type quoterFunc func(ctx context.Context, nativeAmount uint64) (uint64, error)

func (f quoterFunc) QuoteUSDValue(ctx context.Context, nativeAmount uint64) (uint64, error) {
	return f(ctx, nativeAmount)
}

// transferFunc adapts a function to the ledger.Transferor interface.
type transferFunc func(ctx context.Context, to string, amount uint64) error

func (f transferFunc) Transfer(ctx context.Context, to string, amount uint64) error {
	return f(ctx, to, amount)
}

// tenthQuoter quotes every amount at one tenth of its native value. With a
// minimum of 100, an amount of 1000 is exactly at the minimum.
var tenthQuoter = quoterFunc(func(ctx context.Context, nativeAmount uint64) (uint64, error) {
	return nativeAmount / 10, nil
})

// acceptAll records transfers and always succeeds.
type acceptAll struct {
	calls  int
	to     string
	amount uint64
}

func (t *acceptAll) Transfer(ctx context.Context, to string, amount uint64) error {
	t.calls++
	t.to = to
	t.amount = amount
	return nil
}

func loadKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load private key: %v", failed, err)
	}
	return pk
}

func contribute(t *testing.T, l *ledger.Ledger, pk *ecdsa.PrivateKey, nonce uint64, amount uint64) error {
	t.Helper()

	cn, err := ledger.NewContribution(nonce, amount)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct contribution: %v", failed, err)
	}

	signedCn, err := cn.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign contribution: %v", failed, err)
	}

	return l.Contribute(context.Background(), signedCn)
}

func withdraw(t *testing.T, l *ledger.Ledger, pk *ecdsa.PrivateKey, nonce uint64) (uint64, error) {
	t.Helper()

	signedWo, err := ledger.NewWithdrawOrder(nonce).Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign withdraw order: %v", failed, err)
	}

	return l.WithdrawAll(context.Background(), signedWo)
}

func newLedger(t *testing.T, minimumUSD uint64, policy ledger.FunderPolicy, quoter ledger.Quoter, transferor ledger.Transferor) *ledger.Ledger {
	t.Helper()

	ownerID := ledger.PublicKeyToAccountID(loadKey(t, ownerKeyHex).PublicKey)

	l, err := ledger.New(ledger.Config{
		Charter: ledger.Charter{
			OwnerID:      ownerID,
			MinimumUSD:   minimumUSD,
			FunderPolicy: policy,
		},
		Oracle:     quoter,
		Settlement: transferor,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct ledger: %v", failed, err)
	}

	return l
}

// =============================================================================

func TestContributions(t *testing.T) {
	type give struct {
		keyHex string
		nonce  uint64
		amount uint64
	}
	type table struct {
		name       string
		minimumUSD uint64
		gives      []give
		total      uint64
		balances   map[string]uint64
	}

	tt := []table{
		{
			name:       "accumulate",
			minimumUSD: 100,
			gives: []give{
				{funderAKeyHex, 1, 1000},
				{funderAKeyHex, 2, 2500},
				{funderBKeyHex, 1, 4000},
			},
			total: 7500,
			balances: map[string]uint64{
				funderAKeyHex: 3500,
				funderBKeyHex: 4000,
			},
		},
		{
			name:       "exact minimum",
			minimumUSD: 100,
			gives: []give{
				{funderAKeyHex, 1, 1000},
			},
			total: 1000,
			balances: map[string]uint64{
				funderAKeyHex: 1000,
			},
		},
	}

	t.Log("Given the need to accept contributions into the ledger.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of contributions.", testID)
			{
				f := func(t *testing.T) {
					l := newLedger(t, tst.minimumUSD, ledger.FundersUnique, tenthQuoter, &acceptAll{})

					for _, gv := range tst.gives {
						if err := contribute(t, l, loadKey(t, gv.keyHex), gv.nonce, gv.amount); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to accept contribution: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to accept contribution.", success, testID)
					}

					if total := l.TotalHeld(); total != tst.total {
						t.Errorf("\t%s\tTest %d:\tShould hold the sum of accepted amounts, got %d, exp %d.", failed, testID, total, tst.total)
					} else {
						t.Logf("\t%s\tTest %d:\tShould hold the sum of accepted amounts.", success, testID)
					}

					for keyHex, exp := range tst.balances {
						account := ledger.PublicKeyToAccountID(loadKey(t, keyHex).PublicKey)
						if bal := l.BalanceOf(account); bal != exp {
							t.Errorf("\t%s\tTest %d:\tShould have correct balance for %s, got %d, exp %d.", failed, testID, account, bal, exp)
						} else {
							t.Logf("\t%s\tTest %d:\tShould have correct balance for %s.", success, testID, account)
						}
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestMinimumContribution(t *testing.T) {
	t.Log("Given the need to reject contributions below the USD minimum.")
	{
		t.Log("\tTest 0:\tWhen a contribution quotes below the minimum.")
		{
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &acceptAll{})
			funderA := loadKey(t, funderAKeyHex)

			err := contribute(t, l, funderA, 1, 999)
			if !ledger.IsInsufficientContribution(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get an insufficient contribution error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get an insufficient contribution error.", success)

			if total := l.TotalHeld(); total != 0 {
				t.Errorf("\t%s\tTest 0:\tShould leave the total unchanged, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the total unchanged.", success)
			}

			account := ledger.PublicKeyToAccountID(funderA.PublicKey)
			if bal := l.BalanceOf(account); bal != 0 {
				t.Errorf("\t%s\tTest 0:\tShould leave the balance unchanged, got %d.", failed, bal)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the balance unchanged.", success)
			}

			if funders := l.Funders(); len(funders) != 0 {
				t.Errorf("\t%s\tTest 0:\tShould not record a funder, got %d.", failed, len(funders))
			} else {
				t.Logf("\t%s\tTest 0:\tShould not record a funder.", success)
			}
		}

		t.Log("\tTest 1:\tWhen a contribution quotes exactly at the minimum.")
		{
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &acceptAll{})
			funderA := loadKey(t, funderAKeyHex)

			if err := contribute(t, l, funderA, 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the contribution: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the contribution.", success)

			account := ledger.PublicKeyToAccountID(funderA.PublicKey)
			if bal := l.BalanceOf(account); bal != 1000 {
				t.Errorf("\t%s\tTest 1:\tShould have the full amount on balance, got %d.", failed, bal)
			} else {
				t.Logf("\t%s\tTest 1:\tShould have the full amount on balance.", success)
			}
		}
	}
}

func TestOracleUnavailable(t *testing.T) {
	downQuoter := quoterFunc(func(ctx context.Context, nativeAmount uint64) (uint64, error) {
		return 0, errors.New("feed unreachable")
	})

	t.Log("Given the need to handle an unreachable price oracle.")
	{
		t.Log("\tTest 0:\tWhen contributing while the oracle is down.")
		{
			l := newLedger(t, 100, ledger.FundersUnique, downQuoter, &acceptAll{})

			err := contribute(t, l, loadKey(t, funderAKeyHex), 1, 1000)
			if !ledger.IsOracleUnavailable(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get an oracle unavailable error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get an oracle unavailable error.", success)

			if total := l.TotalHeld(); total != 0 {
				t.Errorf("\t%s\tTest 0:\tShould leave the total unchanged, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the total unchanged.", success)
			}
		}

		t.Log("\tTest 1:\tWhen withdrawing while the oracle is down.")
		{
			// The oracle goes dark after the first quote. A withdrawal never
			// consults the oracle so it must still work.
			quotes := 0
			flakyQuoter := quoterFunc(func(ctx context.Context, nativeAmount uint64) (uint64, error) {
				quotes++
				if quotes > 1 {
					return 0, errors.New("feed unreachable")
				}
				return nativeAmount / 10, nil
			})

			transferor := acceptAll{}
			l := newLedger(t, 100, ledger.FundersUnique, flakyQuoter, &transferor)
			owner := loadKey(t, ownerKeyHex)

			if err := contribute(t, l, loadKey(t, funderAKeyHex), 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the contribution: %v", failed, err)
			}

			amount, err := withdraw(t, l, owner, 1)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to withdraw: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to withdraw.", success)

			if amount != 1000 || transferor.amount != 1000 {
				t.Errorf("\t%s\tTest 1:\tShould transfer the held total, got %d.", failed, amount)
			} else {
				t.Logf("\t%s\tTest 1:\tShould transfer the held total.", success)
			}
		}
	}
}

func TestFunderPolicy(t *testing.T) {
	type table struct {
		name    string
		policy  ledger.FunderPolicy
		funders int
	}

	tt := []table{
		{"unique", ledger.FundersUnique, 1},
		{"every", ledger.FundersEvery, 2},
	}

	t.Log("Given the need to record repeat funders per the charter policy.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the same account contributes twice under the %s policy.", testID, tst.name)
			{
				f := func(t *testing.T) {
					l := newLedger(t, 100, tst.policy, tenthQuoter, &acceptAll{})
					funderA := loadKey(t, funderAKeyHex)

					if err := contribute(t, l, funderA, 1, 1000); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the first contribution: %v", failed, testID, err)
					}
					if err := contribute(t, l, funderA, 2, 1000); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the second contribution: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould accept both contributions.", success, testID)

					if funders := l.Funders(); len(funders) != tst.funders {
						t.Errorf("\t%s\tTest %d:\tShould record %d funder entries, got %d.", failed, testID, tst.funders, len(funders))
					} else {
						t.Logf("\t%s\tTest %d:\tShould record %d funder entries.", success, testID, tst.funders)
					}

					account := ledger.PublicKeyToAccountID(funderA.PublicKey)
					if bal := l.BalanceOf(account); bal != 2000 {
						t.Errorf("\t%s\tTest %d:\tShould accumulate the balance, got %d.", failed, testID, bal)
					} else {
						t.Logf("\t%s\tTest %d:\tShould accumulate the balance.", success, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestNonceValidation(t *testing.T) {
	t.Log("Given the need to reject replayed contributions.")
	{
		t.Log("\tTest 0:\tWhen a contribution reuses a nonce.")
		{
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &acceptAll{})
			funderA := loadKey(t, funderAKeyHex)

			if err := contribute(t, l, funderA, 5, 1000); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the first contribution: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the first contribution.", success)

			err := contribute(t, l, funderA, 5, 1000)
			if !ledger.IsReplay(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get a replay error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a replay error.", success)

			if total := l.TotalHeld(); total != 1000 {
				t.Errorf("\t%s\tTest 0:\tShould leave the total unchanged, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the total unchanged.", success)
			}
		}
	}
}

func TestWithdraw(t *testing.T) {
	t.Log("Given the need to pay out everything the ledger holds.")
	{
		t.Log("\tTest 0:\tWhen a non-owner asks for a withdrawal.")
		{
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &acceptAll{})
			funderA := loadKey(t, funderAKeyHex)

			if err := contribute(t, l, funderA, 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the contribution: %v", failed, err)
			}

			_, err := withdraw(t, l, funderA, 2)
			if !ledger.IsNotOwner(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get a not owner error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a not owner error.", success)

			if total := l.TotalHeld(); total != 1000 {
				t.Errorf("\t%s\tTest 0:\tShould leave the total unchanged, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the total unchanged.", success)
			}
		}

		t.Log("\tTest 1:\tWhen the owner withdraws all held funds.")
		{
			transferor := acceptAll{}
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &transferor)
			owner := loadKey(t, ownerKeyHex)
			funderA := loadKey(t, funderAKeyHex)
			funderB := loadKey(t, funderBKeyHex)

			if err := contribute(t, l, funderA, 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the contribution: %v", failed, err)
			}
			if err := contribute(t, l, funderB, 1, 4000); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the contribution: %v", failed, err)
			}

			amount, err := withdraw(t, l, owner, 1)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to withdraw: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to withdraw.", success)

			if amount != 5000 || transferor.amount != 5000 {
				t.Errorf("\t%s\tTest 1:\tShould transfer the held total, got %d.", failed, amount)
			} else {
				t.Logf("\t%s\tTest 1:\tShould transfer the held total.", success)
			}

			if to := ledger.AccountID(transferor.to); to != l.Owner() {
				t.Errorf("\t%s\tTest 1:\tShould transfer to the owner, got %s.", failed, to)
			} else {
				t.Logf("\t%s\tTest 1:\tShould transfer to the owner.", success)
			}

			for _, pk := range []*ecdsa.PrivateKey{funderA, funderB} {
				account := ledger.PublicKeyToAccountID(pk.PublicKey)
				if bal := l.BalanceOf(account); bal != 0 {
					t.Errorf("\t%s\tTest 1:\tShould zero the balance for %s, got %d.", failed, account, bal)
				} else {
					t.Logf("\t%s\tTest 1:\tShould zero the balance for %s.", success, account)
				}
			}

			if total := l.TotalHeld(); total != 0 {
				t.Errorf("\t%s\tTest 1:\tShould hold nothing after withdrawal, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 1:\tShould hold nothing after withdrawal.", success)
			}

			if funders := l.Funders(); len(funders) != 0 {
				t.Errorf("\t%s\tTest 1:\tShould clear the funder list, got %d.", failed, len(funders))
			} else {
				t.Logf("\t%s\tTest 1:\tShould clear the funder list.", success)
			}

			// A second withdrawal has nothing to pay out and must not call
			// the settlement service again.
			amount, err = withdraw(t, l, owner, 2)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to withdraw again: %v", failed, err)
			}
			if amount != 0 || transferor.calls != 1 {
				t.Errorf("\t%s\tTest 1:\tShould make the second withdrawal a no-op, amount %d, calls %d.", failed, amount, transferor.calls)
			} else {
				t.Logf("\t%s\tTest 1:\tShould make the second withdrawal a no-op.", success)
			}
		}

		t.Log("\tTest 2:\tWhen the settlement transfer fails.")
		{
			reject := transferFunc(func(ctx context.Context, to string, amount uint64) error {
				return errors.New("settlement rejected")
			})
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, reject)
			owner := loadKey(t, ownerKeyHex)
			funderA := loadKey(t, funderAKeyHex)

			if err := contribute(t, l, funderA, 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould accept the contribution: %v", failed, err)
			}

			_, err := withdraw(t, l, owner, 1)
			if !ledger.IsTransferFailed(err) {
				t.Fatalf("\t%s\tTest 2:\tShould get a transfer failed error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a transfer failed error.", success)

			// The rollback restores the owner's nonce too, so retrying the
			// same order must reach the settlement service again.
			_, err = withdraw(t, l, owner, 1)
			if !ledger.IsTransferFailed(err) {
				t.Errorf("\t%s\tTest 2:\tShould be able to retry with the same nonce: %v", failed, err)
			} else {
				t.Logf("\t%s\tTest 2:\tShould be able to retry with the same nonce.", success)
			}

			account := ledger.PublicKeyToAccountID(funderA.PublicKey)
			if bal := l.BalanceOf(account); bal != 1000 {
				t.Errorf("\t%s\tTest 2:\tShould restore the balance, got %d.", failed, bal)
			} else {
				t.Logf("\t%s\tTest 2:\tShould restore the balance.", success)
			}

			if total := l.TotalHeld(); total != 1000 {
				t.Errorf("\t%s\tTest 2:\tShould restore the total, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 2:\tShould restore the total.", success)
			}

			if funders := l.Funders(); len(funders) != 1 {
				t.Errorf("\t%s\tTest 2:\tShould restore the funder list, got %d.", failed, len(funders))
			} else {
				t.Logf("\t%s\tTest 2:\tShould restore the funder list.", success)
			}
		}
	}
}

func TestWithdrawReplay(t *testing.T) {
	t.Log("Given the need to reject a captured withdraw order submitted twice.")
	{
		t.Log("\tTest 0:\tWhen the same signed order is submitted after new funds accumulate.")
		{
			transferor := acceptAll{}
			l := newLedger(t, 100, ledger.FundersUnique, tenthQuoter, &transferor)
			owner := loadKey(t, ownerKeyHex)
			funderA := loadKey(t, funderAKeyHex)

			if err := contribute(t, l, funderA, 1, 1000); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the contribution: %v", failed, err)
			}

			signedWo, err := ledger.NewWithdrawOrder(1).Sign(owner)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign withdraw order: %v", failed, err)
			}

			amount, err := l.WithdrawAll(context.Background(), signedWo)
			if err != nil || amount != 1000 {
				t.Fatalf("\t%s\tTest 0:\tShould be able to withdraw: amount %d, %v", failed, amount, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to withdraw.", success)

			if err := contribute(t, l, funderA, 2, 2000); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the next contribution: %v", failed, err)
			}

			// The identical signed order goes in a second time. Without the
			// nonce check it would drain the new funds.
			_, err = l.WithdrawAll(context.Background(), signedWo)
			if !ledger.IsReplay(err) {
				t.Fatalf("\t%s\tTest 0:\tShould get a replay error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a replay error.", success)

			if transferor.calls != 1 {
				t.Errorf("\t%s\tTest 0:\tShould not call the settlement service again, calls %d.", failed, transferor.calls)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not call the settlement service again.", success)
			}

			if total := l.TotalHeld(); total != 2000 {
				t.Errorf("\t%s\tTest 0:\tShould leave the new funds held, got %d.", failed, total)
			} else {
				t.Logf("\t%s\tTest 0:\tShould leave the new funds held.", success)
			}

			// A fresh order with the next nonce still works.
			amount, err = withdraw(t, l, owner, 2)
			if err != nil || amount != 2000 {
				t.Errorf("\t%s\tTest 0:\tShould accept a fresh order with the next nonce: amount %d, %v", failed, amount, err)
			} else {
				t.Logf("\t%s\tTest 0:\tShould accept a fresh order with the next nonce.", success)
			}
		}
	}
}

package fundgrp

import (
	"github.com/ardanlabs/fundme/business/core/ledger"
	"github.com/ardanlabs/fundme/foundation/signature"
)

// submitContribution is what a wallet sends to fund the ledger. The
// signature travels as one hex string and is split back into its parts
// before the core sees it.
type submitContribution struct {
	ID     string `json:"id" validate:"required,uuid4"`
	Nonce  uint64 `json:"nonce" validate:"required"`
	Amount uint64 `json:"amount" validate:"required,gt=0"`
	Sig    string `json:"sig" validate:"required"`
}

func toSignedContribution(sc submitContribution) (ledger.SignedContribution, error) {
	v, r, s, err := signature.ToVRSFromHexSignature(sc.Sig)
	if err != nil {
		return ledger.SignedContribution{}, err
	}

	scn := ledger.SignedContribution{
		Contribution: ledger.Contribution{
			ID:     sc.ID,
			Nonce:  sc.Nonce,
			Amount: sc.Amount,
		},
		V: v,
		R: r,
		S: s,
	}

	return scn, nil
}

// submitWithdraw is what the owner's wallet sends to pay out the ledger.
type submitWithdraw struct {
	ID    string `json:"id" validate:"required,uuid4"`
	Nonce uint64 `json:"nonce" validate:"required"`
	Sig   string `json:"sig" validate:"required"`
}

func toSignedWithdrawOrder(sw submitWithdraw) (ledger.SignedWithdrawOrder, error) {
	v, r, s, err := signature.ToVRSFromHexSignature(sw.Sig)
	if err != nil {
		return ledger.SignedWithdrawOrder{}, err
	}

	swo := ledger.SignedWithdrawOrder{
		WithdrawOrder: ledger.WithdrawOrder{
			ID:    sw.ID,
			Nonce: sw.Nonce,
		},
		V: v,
		R: r,
		S: s,
	}

	return swo, nil
}

// =============================================================================

type balance struct {
	Account ledger.AccountID `json:"account"`
	Name    string           `json:"name"`
	Balance uint64           `json:"balance"`
}

type balanceInfo struct {
	TotalHeld uint64    `json:"total_held"`
	Balances  []balance `json:"balances"`
}

type funder struct {
	Account ledger.AccountID `json:"account"`
	Name    string           `json:"name"`
}

type charterInfo struct {
	Owner        ledger.AccountID    `json:"owner"`
	OwnerName    string              `json:"owner_name"`
	MinimumUSD   uint64              `json:"minimum_usd"`
	FunderPolicy ledger.FunderPolicy `json:"funder_policy"`
}

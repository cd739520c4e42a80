package ledger

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/fundme/foundation/signature"
	"github.com/google/uuid"
)

// =============================================================================

// Contribution is the funding information a contributor sends to the ledger.
// The contributor identity is never part of the document, it is recovered
// from the signature.
type Contribution struct {
	ID     string `json:"id"`     // Unique id for the contribution supplied by the wallet.
	Nonce  uint64 `json:"nonce"`  // Must be larger than the last nonce used by the contributor.
	Amount uint64 `json:"amount"` // Native currency amount being contributed.
}

// NewContribution constructs a new contribution.
func NewContribution(nonce uint64, amount uint64) (Contribution, error) {
	if amount == 0 {
		return Contribution{}, errors.New("contribution amount must be positive")
	}

	cn := Contribution{
		ID:     uuid.New().String(),
		Nonce:  nonce,
		Amount: amount,
	}

	return cn, nil
}

// Sign uses the specified private key to sign the contribution.
func (cn Contribution) Sign(privateKey *ecdsa.PrivateKey) (SignedContribution, error) {
	v, r, s, err := signature.Sign(cn, privateKey)
	if err != nil {
		return SignedContribution{}, err
	}

	signedCn := SignedContribution{
		Contribution: cn,
		V:            v,
		R:            r,
		S:            s,
	}

	return signedCn, nil
}

// =============================================================================

// SignedContribution is a signed version of the contribution. This is how
// wallets provide contributions for inclusion into the ledger.
type SignedContribution struct {
	Contribution
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with fundmeID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the contribution has a proper signature that conforms to
// our standards and carries a positive amount.
func (cn SignedContribution) Validate() error {
	if cn.Amount == 0 {
		return errors.New("contribution amount must be positive")
	}

	return signature.VerifySignature(cn.V, cn.R, cn.S)
}

// FromAccount extracts the account id that signed the contribution.
func (cn SignedContribution) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(cn.Contribution, cn.V, cn.R, cn.S)
	return AccountID(address), err
}

// SignatureString returns the signature as a string.
func (cn SignedContribution) SignatureString() string {
	return signature.SignatureString(cn.V, cn.R, cn.S)
}

// String implements the fmt.Stringer interface for logging.
func (cn SignedContribution) String() string {
	from, err := cn.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, cn.Nonce)
}

// =============================================================================

// WithdrawOrder is the document the owner signs to ask the ledger to pay out
// everything it currently holds.
type WithdrawOrder struct {
	ID    string `json:"id"`    // Unique id for the order supplied by the wallet.
	Nonce uint64 `json:"nonce"` // Must be larger than the last nonce used by the owner.
}

// NewWithdrawOrder constructs a new withdraw order.
func NewWithdrawOrder(nonce uint64) WithdrawOrder {
	return WithdrawOrder{
		ID:    uuid.New().String(),
		Nonce: nonce,
	}
}

// Sign uses the specified private key to sign the withdraw order.
func (wo WithdrawOrder) Sign(privateKey *ecdsa.PrivateKey) (SignedWithdrawOrder, error) {
	v, r, s, err := signature.Sign(wo, privateKey)
	if err != nil {
		return SignedWithdrawOrder{}, err
	}

	signedWo := SignedWithdrawOrder{
		WithdrawOrder: wo,
		V:             v,
		R:             r,
		S:             s,
	}

	return signedWo, nil
}

// =============================================================================

// SignedWithdrawOrder is a signed version of the withdraw order.
type SignedWithdrawOrder struct {
	WithdrawOrder
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with fundmeID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the withdraw order has a proper signature that conforms
// to our standards.
func (wo SignedWithdrawOrder) Validate() error {
	return signature.VerifySignature(wo.V, wo.R, wo.S)
}

// FromAccount extracts the account id that signed the withdraw order.
func (wo SignedWithdrawOrder) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(wo.WithdrawOrder, wo.V, wo.R, wo.S)
	return AccountID(address), err
}

// SignatureString returns the signature as a string.
func (wo SignedWithdrawOrder) SignatureString() string {
	return signature.SignatureString(wo.V, wo.R, wo.S)
}

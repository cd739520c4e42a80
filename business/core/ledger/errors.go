package ledger

import (
	"errors"
	"fmt"
)

// The ledger fails in a closed set of ways. Each failure is a distinct type
// carrying the structured fields needed for diagnosis, so callers branch on
// the kind of error rather than parsing text.

// =============================================================================

// InsufficientContributionError is returned when the USD value of a
// contribution does not clear the charter minimum.
type InsufficientContributionError struct {
	Amount     uint64
	QuoteUSD   uint64
	MinimumUSD uint64
}

// Error implements the error interface.
func (e *InsufficientContributionError) Error() string {
	return fmt.Sprintf("contribution of %d quotes at %d usd, minimum is %d usd", e.Amount, e.QuoteUSD, e.MinimumUSD)
}

// IsInsufficientContribution checks for an InsufficientContributionError in
// the specified error value.
func IsInsufficientContribution(err error) bool {
	var e *InsufficientContributionError
	return errors.As(err, &e)
}

// =============================================================================

// NotOwnerError is returned when an account other than the owner asks for
// a withdrawal.
type NotOwnerError struct {
	Account AccountID
}

// Error implements the error interface.
func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("account %s is not the ledger owner", e.Account)
}

// IsNotOwner checks for a NotOwnerError in the specified error value.
func IsNotOwner(err error) bool {
	var e *NotOwnerError
	return errors.As(err, &e)
}

// =============================================================================

// ReplayError is returned when a signed order carries a nonce that is not
// larger than the last nonce the ledger recorded for the signing account.
// A captured order can never be submitted twice.
type ReplayError struct {
	Account    AccountID
	LastNonce  uint64
	OrderNonce uint64
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	return fmt.Sprintf("order nonce %d for account %s already spent, last %d", e.OrderNonce, e.Account, e.LastNonce)
}

// IsReplay checks for a ReplayError in the specified error value.
func IsReplay(err error) bool {
	var e *ReplayError
	return errors.As(err, &e)
}

// =============================================================================

// OracleUnavailableError is returned when the price feed cannot produce a
// usable quote. It is never treated as a zero quote.
type OracleUnavailableError struct {
	Err error
}

// Error implements the error interface.
func (e *OracleUnavailableError) Error() string {
	return fmt.Sprintf("price oracle unavailable: %s", e.Err)
}

// Unwrap exposes the underlying oracle failure.
func (e *OracleUnavailableError) Unwrap() error {
	return e.Err
}

// IsOracleUnavailable checks for an OracleUnavailableError in the specified
// error value.
func IsOracleUnavailable(err error) bool {
	var e *OracleUnavailableError
	return errors.As(err, &e)
}

// =============================================================================

// TransferFailedError is returned when the settlement transfer does not
// complete. The ledger state is left exactly as it was before the
// withdrawal, so the owner can retry safely.
type TransferFailedError struct {
	Amount uint64
	Err    error
}

// Error implements the error interface.
func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer of %d failed: %s", e.Amount, e.Err)
}

// Unwrap exposes the underlying settlement failure.
func (e *TransferFailedError) Unwrap() error {
	return e.Err
}

// IsTransferFailed checks for a TransferFailedError in the specified
// error value.
func IsTransferFailed(err error) bool {
	var e *TransferFailedError
	return errors.As(err, &e)
}

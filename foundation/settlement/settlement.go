// Package settlement provides a client for executing outbound native
// currency transfers through an external settlement service.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Transferor represents the behavior required to move native funds out of
// the ledger to a recipient account.
type Transferor interface {
	Transfer(ctx context.Context, to string, amount uint64) error
}

// =============================================================================

// order is the document posted to the settlement service to move funds.
type order struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// receipt is the document returned by the settlement service. Success is
// only reported through an explicit confirmed status, never implied by the
// absence of an error.
type receipt struct {
	Status string `json:"status"`
}

// statusConfirmed is the only receipt status that represents a completed
// transfer.
const statusConfirmed = "confirmed"

// Client knows how to submit transfer orders to the settlement service.
type Client struct {
	settleURL string
	http      http.Client
}

// New constructs a client for the settlement service at the specified host.
func New(settleURL string, timeout time.Duration) *Client {
	return &Client{
		settleURL: settleURL,
		http: http.Client{
			Timeout: timeout,
		},
	}
}

// Transfer asks the settlement service to move the specified amount of
// native funds to the recipient account.
func (c *Client) Transfer(ctx context.Context, to string, amount uint64) error {
	url := fmt.Sprintf("%s/v1/transfer", c.settleURL)

	data, err := json.Marshal(order{To: to, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("settlement unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("settlement response: %s", resp.Status)
	}

	var rcpt receipt
	if err := json.NewDecoder(resp.Body).Decode(&rcpt); err != nil {
		return fmt.Errorf("decoding settlement response: %w", err)
	}

	if rcpt.Status != statusConfirmed {
		return fmt.Errorf("transfer not confirmed, status %q", rcpt.Status)
	}

	return nil
}

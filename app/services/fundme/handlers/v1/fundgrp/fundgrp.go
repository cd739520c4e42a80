// Package fundgrp maintains the group of handlers for the funding ledger.
package fundgrp

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/fundme/business/core/ledger"
	"github.com/ardanlabs/fundme/business/web/errs"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ardanlabs/fundme/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of funding ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	NS     *nameservice.NameService
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Contribute adds a signed contribution into the ledger.
func (h Handlers) Contribute(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sc submitContribution
	if err := web.Decode(r, &sc); err != nil {
		return err
	}

	scn, err := toSignedContribution(sc)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add contribution", "traceid", v.TraceID, "from:nonce", scn, "amount", scn.Amount)

	if err := h.Ledger.Contribute(ctx, scn); err != nil {
		switch {
		case ledger.IsOracleUnavailable(err):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		case ledger.IsReplay(err):
			return errs.NewTrusted(err, http.StatusConflict)
		default:
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "contribution accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Withdraw pays everything the ledger holds out to the owner.
func (h Handlers) Withdraw(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sw submitWithdraw
	if err := web.Decode(r, &sw); err != nil {
		return err
	}

	swo, err := toSignedWithdrawOrder(sw)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("withdraw all", "traceid", v.TraceID, "order", sw.ID)

	amount, err := h.Ledger.WithdrawAll(ctx, swo)
	if err != nil {
		switch {
		case ledger.IsNotOwner(err):
			return errs.NewTrusted(err, http.StatusForbidden)
		case ledger.IsTransferFailed(err):
			return errs.NewTrusted(err, http.StatusBadGateway)
		case ledger.IsReplay(err):
			return errs.NewTrusted(err, http.StatusConflict)
		default:
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	resp := struct {
		Status string           `json:"status"`
		Amount uint64           `json:"amount"`
		To     ledger.AccountID `json:"to"`
	}{
		Status: "funds withdrawn",
		Amount: amount,
		To:     h.Ledger.Owner(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balances returns the current balances for all funders, or for the one
// account specified on the route.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := web.Param(r, "account")

	var balances []balance
	switch account {
	case "":
		for accountID, info := range h.Ledger.Balances() {
			balances = append(balances, balance{
				Account: accountID,
				Name:    h.NS.Lookup(string(accountID)),
				Balance: info.Balance,
			})
		}

	default:
		accountID, err := ledger.ToAccountID(account)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		balances = append(balances, balance{
			Account: accountID,
			Name:    h.NS.Lookup(string(accountID)),
			Balance: h.Ledger.BalanceOf(accountID),
		})
	}

	bi := balanceInfo{
		TotalHeld: h.Ledger.TotalHeld(),
		Balances:  balances,
	}

	return web.Respond(ctx, w, bi, http.StatusOK)
}

// Funders returns the ordered list of funders.
func (h Handlers) Funders(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := h.Ledger.Funders()

	funders := make([]funder, len(accounts))
	for i, accountID := range accounts {
		funders[i] = funder{
			Account: accountID,
			Name:    h.NS.Lookup(string(accountID)),
		}
	}

	return web.Respond(ctx, w, funders, http.StatusOK)
}

// Total returns the sum of funds the ledger currently retains.
func (h Handlers) Total(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		TotalHeld uint64 `json:"total_held"`
	}{
		TotalHeld: h.Ledger.TotalHeld(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Charter returns the immutable ledger charter.
func (h Handlers) Charter(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	charter := h.Ledger.Charter()

	ci := charterInfo{
		Owner:        charter.OwnerID,
		OwnerName:    h.NS.Lookup(string(charter.OwnerID)),
		MinimumUSD:   charter.MinimumUSD,
		FunderPolicy: charter.FunderPolicy,
	}

	return web.Respond(ctx, w, ci, http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/fundme/app/services/fundme/handlers/v1/fundgrp"
	"github.com/ardanlabs/fundme/business/core/ledger"
	"github.com/ardanlabs/fundme/foundation/events"
	"github.com/ardanlabs/fundme/foundation/nameservice"
	"github.com/ardanlabs/fundme/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
	NS     *nameservice.NameService
	Evts   *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	fgh := fundgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		NS:     cfg.NS,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodPost, version, "/funds/contribute", fgh.Contribute)
	app.Handle(http.MethodPost, version, "/funds/withdraw", fgh.Withdraw)
	app.Handle(http.MethodGet, version, "/funds/balances/list", fgh.Balances)
	app.Handle(http.MethodGet, version, "/funds/balances/list/:account", fgh.Balances)
	app.Handle(http.MethodGet, version, "/funds/funders/list", fgh.Funders)
	app.Handle(http.MethodGet, version, "/funds/total", fgh.Total)
	app.Handle(http.MethodGet, version, "/ledger/charter", fgh.Charter)
	app.Handle(http.MethodGet, version, "/events", fgh.Events)
}

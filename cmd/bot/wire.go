//go:build wireinject
// +build wireinject

package main

import (
	"github.com/Jacobbrewer1/ticketdesk/cmd/bot/config"
	"github.com/Jacobbrewer1/ticketdesk/pkg/logging"
	"github.com/Jacobbrewer1/ticketdesk/pkg/tickets"
	"github.com/google/wire"
	"github.com/gorilla/mux"
)

func InitializeApp() (*App, error) {
	wire.Build(
		wire.Value(logging.Name(config.AppName)),
		logging.NewConfig,
		logging.CommonLogger,
		config.Parse,
		mux.NewRouter,
		newLimiter,
		tickets.NewLockFlags,
		newCloseConfirmations,
		NewApp,
	)
	return new(App), nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	logsvc "github.com/ThumulaGamage/EduPlatform-backend/services/logger"
	"github.com/ThumulaGamage/EduPlatform-backend/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewZerolog(os.Stdout, conf).With().Str("component", "admin").Logger()

	store, err := database.Open(conf)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	if err = store.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("pinging database")
	}

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	tokens := account.NewTokenIssuer(conf.SecretKey, conf.JWTExpirationDelta, conf.AppName)

	cli := commandLine{
		accountSvc: account.NewService(store.Accounts, tokens, validate),
		db:         store,
	}
	err = cli.run(os.Args)
	_ = store.Close(context.Background())
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// Command issue-token prints a signed bearer token for a user id, for local
// development and scripted access to the API.
package main

import (
	"flag"
	"fmt"
	"os"

	"moneymanager/internal/auth"
	"moneymanager/internal/cli"
	"moneymanager/internal/config"
	"moneymanager/internal/log"
)

func main() {
	user := flag.String("user", "", "user id to put in the sub claim (required)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentAuth)

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id>")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.ValidateAuth(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("Failed to configure tokens", log.FieldError, err.Error())
		os.Exit(1)
	}
	tok, err := tokens.Issue(*user)
	if err != nil {
		logger.Error("Failed to issue token", log.FieldError, err.Error())
		os.Exit(1)
	}
	fmt.Println(tok)
}

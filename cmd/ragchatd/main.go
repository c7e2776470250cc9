package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/dmelo/ragchat/internal/app"
	"github.com/dmelo/ragchat/internal/config"
	"github.com/dmelo/ragchat/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag, session.ConfigPath())
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	apiURL := config.DefaultAPIURL
	if cfg, err := config.Load(session.ConfigPath()); err == nil {
		apiURL = cfg.APIURL
	}

	fx.New(
		app.Module(app.Params{
			SessionName: sessionName,
			APIURL:      apiURL,
		}),
	).Run()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/eduportal/internal/adminctl"
	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/server/config"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, adminctl.Usage)
		return 2
	}

	cfg := config.LoadConfig()

	var repos repomanager.RepositoryManager
	if adminctl.NeedsStore(args[0]) {
		var err error
		repos, err = repomanager.Open(ctx, cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer repos.Close(ctx)
	}

	app := adminctl.NewApp(repos, cryptox.NewHasher(cfg.BcryptCost), os.Stdin, os.Stdout).
		WithPasswordPolicy(services.PasswordPolicy{MinLength: cfg.MinPasswordLength})
	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, adminctl.ErrUsage) {
			fmt.Fprint(os.Stderr, adminctl.Usage)
			return 2
		}
		return 1
	}
	return 0
}

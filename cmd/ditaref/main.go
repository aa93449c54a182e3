package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ditaref/ditaref/internal/cli"
	"github.com/ditaref/ditaref/internal/ux"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand(version).ExecuteContext(ctx)
	stop()
	if err != nil {
		ux.Stderr().Error("%s", cli.ErrorExcerpt(err))
		os.Exit(1)
	}
}

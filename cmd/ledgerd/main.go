package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mintflow/internal/ledgernode/app"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	a.Run(ctx)

}

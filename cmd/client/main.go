package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/app"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	a.Run(ctx)
}

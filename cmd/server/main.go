// Command videofeed serves the video catalogue REST API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/videofeed/internal/server"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "videofeed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return app.Run(ctx)
}

// Command cardscand runs the card scanning HTTP server in the foreground.
// It reads the config file named by CARDSCAN_CONFIG, falling back to the
// default search path.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"cardscan/internal/config"
	"cardscan/internal/daemonrun"
)

var version = "dev"

func main() {
	cfg, _, _, err := config.Load(os.Getenv("CARDSCAN_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{Version: version})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("cardscand: %v", err)
	}
}

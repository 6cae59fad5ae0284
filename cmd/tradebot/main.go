package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-bot/internal/config"
	"trade-bot/internal/core"
	"trade-bot/internal/exchange/binance"
	"trade-bot/internal/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}
	log, err := logger.Init(cfg.Logging)
	if err != nil {
		fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := binance.NewClient(cfg.Exchange, cfg.InstanceID)
	if err != nil {
		fatal(err.Error())
	}
	if err := client.SyncTime(ctx); err != nil {
		fatal(fmt.Sprintf("time sync with %s failed: %v", client.Name(), err))
	}

	listings, err := client.ExchangeInfo(ctx)
	if err != nil {
		fatal(fmt.Sprintf("load exchange info failed: %v", err))
	}
	filters := core.NewFilterTable(listings)
	log.Info("exchange info loaded",
		"exchange", client.Name(),
		"mode", string(cfg.Mode),
		"symbols", filters.Len(),
	)
	fmt.Printf("connected to %s (%s), %d symbols loaded\n", client.Name(), cfg.Mode, filters.Len())

	m := &menu{
		cfg:     cfg,
		log:     log,
		ex:      client,
		streams: clientStreams{client: client, keepalive: time.Duration(cfg.Exchange.UserStreamKeepaliveSec) * time.Second},
		filters: filters,
		in:      os.Stdin,
		out:     os.Stdout,
	}
	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err.Error())
	}
}

// clientStreams adapts the futures client to the menu's stream opener so
// the watch handler can be tested without a live websocket.
type clientStreams struct {
	client    *binance.Client
	keepalive time.Duration
}

func (c clientStreams) OpenUserStream(ctx context.Context) (updateStream, error) {
	return c.client.NewUserStream(ctx, c.keepalive)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

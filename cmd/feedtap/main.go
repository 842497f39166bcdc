// feedtap connects to the market event relay and prints decoded
// commodity events to the console.
// Usage: go run ./cmd/feedtap --url wss://eddn.edcd.io/relay
package main

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/skelsey/galmarket/internal/config"
	"github.com/skelsey/galmarket/internal/feed"
)

func main() {
	url := flag.String("url", config.DefaultFeedURL, "relay websocket URL")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	allSchemas := flag.Bool("all", false, "print every schema, not just commodity events")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	transport := feed.NewTransport(feed.DefaultTransportConfig(*url), logger)
	if err := transport.Connect(ctx); err != nil {
		logger.Error("failed to connect", "url", *url, "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	logger.Info("connected", "url", *url)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-transport.Errors():
			logger.Error("relay read failed", "error", err)
			os.Exit(1)
		case msg := <-transport.Messages():
			if err := printEvent(msg.Data, *verbose, *allSchemas); err != nil {
				logger.Warn("dropped event", "error", err)
			}
		}
	}
}

func printEvent(raw []byte, verbose, allSchemas bool) error {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("zlib: %w", err)
	}
	decoded, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}

	var env feed.Envelope
	if err := json.Unmarshal(decoded, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	if env.SchemaRef != feed.CommoditySchema {
		if allSchemas {
			fmt.Printf("[%s] %s\n", env.Header.GatewayTimestamp, env.SchemaRef)
		}
		return nil
	}

	var msg feed.CommodityMessage
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return fmt.Errorf("decode commodity message: %w", err)
	}

	if verbose {
		out, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("[%s] %s / %s  %d commodities\n",
		msg.Timestamp.Format("15:04:05"),
		msg.SystemName,
		msg.StationName,
		len(msg.Commodities),
	)
	return nil
}

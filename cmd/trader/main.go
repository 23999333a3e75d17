package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/emre-gn/tradeflow/configs"
	"github.com/emre-gn/tradeflow/internal/drivers/binance"
	"github.com/emre-gn/tradeflow/internal/sink"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func main() {
	var channel, symbols string
	flag.StringVar(&channel, "channel", "aggTrade", "Stream channel type to subscribe")
	flag.StringVar(&symbols, "symbols", "btcusdt", "Comma-separated symbols to subscribe")
	flag.Parse()

	logger := newLogger()
	cfg := configs.AppLoad()

	if cfg.Binance.PublicKey == "" || cfg.Binance.SecretKey == "" {
		logger.Fatal("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}

	var events sink.Sink = &sink.Log{Logger: logger}
	if cfg.Kafka.Broker != "" {
		kafkaSink, err := sink.NewKafka(cfg.Kafka.Broker, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatalf("Kafka sink: %v", err)
		}
		defer kafkaSink.Close()
		events = kafkaSink
	}

	client := binance.New(binance.Config{
		PublicKey:  cfg.Binance.PublicKey,
		SecretKey:  cfg.Binance.SecretKey,
		Testnet:    cfg.Binance.Testnet,
		RecvWindow: cfg.Binance.RecvWindowMs,
		Timeout:    cfg.Binance.RequestTimeout,
		UserStream: cfg.Binance.UserStream,
	}, events, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Init(ctx); err != nil {
		logger.Fatalf("Client init failed: %v", err)
	}

	id, _, err := client.Subscribe(ctx, channel, strings.Split(symbols, ","))
	if err != nil {
		logger.Fatalf("Subscribe failed: %v", err)
	}
	logger.Infof("Subscribed with id %d", id)

	<-ctx.Done()
	client.Wait()
	logger.Info("Shutdown complete")
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/settlement/client"
	"github.com/goalscanpro/bankroll-core/internal/settlement/consumer"
	"github.com/goalscanpro/bankroll-core/internal/shared/config"
	skafka "github.com/goalscanpro/bankroll-core/internal/shared/kafka"
	"github.com/goalscanpro/bankroll-core/internal/shared/logger"
	"github.com/goalscanpro/bankroll-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Consumer de resultados + DLQ para mensagens envenenadas
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchResults, "settlement-worker")
	defer reader.Close()
	dlqWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchResultsDLQ)
	defer dlqWriter.Close()

	// Toda reconciliação passa pelo bankroll-service: a trava do motor é por
	// processo, então este worker nunca escreve a banca direto
	bcli := client.New(cfg.BankrollURL)

	metrics.StartMetricsServer(cfg.MetricsPort, bcli.Ping)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMatchResults),
		zap.String("bankroll", cfg.BankrollURL),
	)

	c := &consumer.Consumer{
		Log:     log,
		Reader:  reader,
		DLQ:     dlqWriter,
		Settler: bcli,
	}
	c.Run(ctx)
}

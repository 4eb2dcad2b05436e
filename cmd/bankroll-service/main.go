package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
	bhttp "github.com/goalscanpro/bankroll-core/internal/bankroll/http"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/producer"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/pubsub"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/repo"
	"github.com/goalscanpro/bankroll-core/internal/shared/cache"
	"github.com/goalscanpro/bankroll-core/internal/shared/config"
	"github.com/goalscanpro/bankroll-core/internal/shared/db"
	skafka "github.com/goalscanpro/bankroll-core/internal/shared/kafka"
	"github.com/goalscanpro/bankroll-core/internal/shared/logger"
	"github.com/goalscanpro/bankroll-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("bankroll-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	// Postgres: fonte de verdade de banca e análises salvas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: espelho de fallback + broadcast de saldo
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers para os eventos de domínio
	bankWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBankUpdated)
	defer bankWriter.Close()
	betWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer betWriter.Close()

	// Stores com espelho Redis por cima do Postgres
	bankStore := repo.NewCachedBankStore(repo.NewBankPostgres(pg), rdb, log)
	recordStore := repo.NewCachedRecordStore(repo.NewMatchPostgres(pg), rdb, log)

	broadcast := pubsub.NewRedisBroadcaster(rdb, cfg.RedisBankChannel)
	publ := producer.NewKafkaPublisher(bankWriter, betWriter, broadcast)

	engine := bankroll.NewEngine(log, bankStore, recordStore, publ, cfg.DefaultCurrency)

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	// Servidor HTTP público
	api := bhttp.NewServer(log, engine)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}

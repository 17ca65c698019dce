// Command server runs the funding-intake API: zero-trust verification in
// front of the investment rails, deterministic treasury allocation behind
// them.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"seedfund/internal/audit"
	"seedfund/internal/credential"
	investmenthandler "seedfund/internal/investment/handler"
	investmentmetrics "seedfund/internal/investment/metrics"
	investmentservice "seedfund/internal/investment/service"
	investmentstore "seedfund/internal/investment/store"
	"seedfund/internal/investor/adapters"
	investorhandler "seedfund/internal/investor/handler"
	investorservice "seedfund/internal/investor/service"
	investorstore "seedfund/internal/investor/store"
	"seedfund/internal/ledger"
	"seedfund/internal/platform/config"
	"seedfund/internal/platform/httpserver"
	"seedfund/internal/platform/logger"
	platformmetrics "seedfund/internal/platform/metrics"
	"seedfund/internal/platform/postgres"
	platformredis "seedfund/internal/platform/redis"
	"seedfund/internal/processor/coinbase"
	"seedfund/internal/ratelimit"
	httptransport "seedfund/internal/transport/http"
	"seedfund/internal/zerotrust"
	zerotrustmetrics "seedfund/internal/zerotrust/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	treasuryCfg, err := config.LoadTreasury(cfg.TreasuryTablePath)
	if err != nil {
		log.Error("failed to load treasury table", "error", err)
		os.Exit(1)
	}
	if err := treasuryCfg.Validate(); err != nil {
		log.Error("treasury table violates allocation invariants, refusing to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key, err := loadCredentialKey(cfg.CredentialPrivateKeyPEM, log)
	if err != nil {
		log.Error("failed to load credential key", "error", err)
		os.Exit(1)
	}
	credentials := credential.NewService(key, cfg.CredentialIssuer, credential.DefaultExpiry)

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	var invStore investorservice.Store
	var txStore investmentservice.Store
	if pool != nil {
		pgInvestors := investorstore.NewPostgres(pool)
		pgInvestments := investmentstore.NewPostgres(pool)
		if err := pgInvestors.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure investor schema", "error", err)
			os.Exit(1)
		}
		if err := pgInvestments.EnsureSchema(ctx); err != nil {
			log.Error("failed to ensure investment schema", "error", err)
			os.Exit(1)
		}
		invStore, txStore = pgInvestors, pgInvestments
		log.Info("using postgres stores")
	} else {
		invStore, txStore = investorstore.NewInMemoryStore(), investmentstore.NewInMemoryStore()
		log.Info("no postgres configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	var limitStore ratelimit.Store
	if redisClient != nil {
		defer redisClient.Close()
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("using redis rate limit store")
	} else {
		limitStore = ratelimit.NewInMemoryStore()
	}

	g, ctx := errgroup.WithContext(ctx)

	auditSinks := audit.MultiStore{audit.NewInMemoryStore()}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()

		inbox := make(chan audit.Event, 256)
		auditSinks = append(auditSinks, audit.NewChannelStore(inbox))
		worker := audit.NewWorker(sink, inbox)
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit events flowing to kafka", "topic", cfg.Kafka.Topic)
	}
	publisher := audit.NewPublisher(auditSinks, log)

	limiter := ratelimit.NewLimiter(limitStore, log, ratelimit.WithAuditPublisher(publisher))

	verifier := zerotrust.New(credentials, adapters.NewComplianceSource(invStore),
		[]byte(cfg.RequestSigningSecret), log,
		zerotrust.WithRateLimiter(limiter.ForClass(ratelimit.ClassInvest)),
		zerotrust.WithReplayWindow(cfg.ReplayWindow),
		zerotrust.WithMetrics(zerotrustmetrics.New()),
	)

	investors := investorservice.New(invStore, log,
		investorservice.WithAuditPublisher(publisher),
		investorservice.WithVerifyBaseURL(cfg.VerifyBaseURL),
	)

	investments := investmentservice.New(txStore, ledger.NewInMemoryLedger(), treasuryCfg, log,
		investmentservice.WithAuditPublisher(publisher),
		investmentservice.WithMetrics(investmentmetrics.New()),
		investmentservice.WithChargeCreator(coinbase.New(cfg.CoinbaseAPIKey, log)),
		investmentservice.WithInvestorCounter(invStore),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		HTTPMetrics: platformmetrics.New(),
		Verifier:    verifier,
		Limiter:     limiter,
		Investors:   investorhandler.New(investors, log),
		Investments: investmenthandler.New(investments, log),
		Webhooks: investmenthandler.NewWebhooks(investments,
			cfg.CoinbaseWebhookSecret, cfg.PlaidWebhookSecret, log,
			investmenthandler.WithWebhookAuditPublisher(publisher),
		),
	})

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting seedfund api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func loadCredentialKey(pemData string, log *slog.Logger) (*ecdsa.PrivateKey, error) {
	if pemData == "" {
		log.Warn("no credential key configured, generating throwaway dev key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("credential key is not valid PEM")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("credential key is not an ECDSA key")
	}
	return key, nil
}

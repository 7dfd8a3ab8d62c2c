package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	httpadp "kidot-ledger/internal/adapter/http"
	"kidot-ledger/internal/adapter/middleware"
	"kidot-ledger/internal/adapter/notify"
	"kidot-ledger/internal/adapter/pricefeed"
	"kidot-ledger/internal/adapter/repository/gormdb"
	"kidot-ledger/internal/config"
	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/infrastructure/cache"
	"kidot-ledger/internal/infrastructure/db"
	"kidot-ledger/internal/infrastructure/logger"
	"kidot-ledger/internal/infrastructure/metrics"
	"kidot-ledger/internal/usecase/loan"
	priceUC "kidot-ledger/internal/usecase/pricefeed"
)

const serviceName = "kidot-ledger"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	fs := pflag.NewFlagSet(serviceName, pflag.ExitOnError)
	cfg.BindFlags(fs)
	issueFor := fs.String("issue-token", "", "print a bearer token for this account and exit")
	tokenTTL := fs.Duration("token-ttl", 24*time.Hour, "lifetime of issued tokens, 0 for no expiry")
	_ = fs.Parse(os.Args[1:])

	log := logger.New(os.Stdout, logger.Options{
		Format:  cfg.LogFormat,
		Service: serviceName,
		Env:     cfg.ServiceEnv,
		Verbose: cfg.Verbose,
	})
	logger.Setup(log)

	if *issueFor != "" {
		if cfg.JWTSecret == "" {
			return errors.New("missing JWT_SECRET")
		}
		tok, err := middleware.SignToken([]byte(cfg.JWTSecret), *issueFor, *tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("open redis: %w", err)
		}
		defer rdb.Close()
	} else {
		log.Warn("redis disabled: no price cache, idempotency or event fan-out")
	}

	admins := access.NewStaticAdmins(cfg.AdminAccounts...)
	accounts := gormdb.NewAccountLedger(gdb, cfg.MinimumBalance)
	loans := gormdb.NewLoanRepository(gdb)
	quotes := gormdb.NewPriceRepository(gdb)
	feed := pricefeed.New(rdb, quotes, cfg.PricePair, log)

	publishers := notify.Multi{notify.NewLogPublisher(log)}
	if rdb != nil {
		publishers = append(publishers, notify.NewRedisPublisher(rdb, cfg.EventsChannel))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := loan.NewUsecase(loans, accounts, gormdb.NewGormUoW(gdb, accounts), feed, loan.Config{
		PotAccount: cfg.PotAccount,
		Auth:       admins,
		Events:     publishers,
		Metrics:    metrics.NewLedger(reg),
		Logger:     log,
		Clock:      clockwork.NewRealClock(),
	})
	if err := engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap pot: %w", err)
	}
	prices := priceUC.NewUsecase(cfg.PricePair, quotes, feed, admins, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.Authenticate([]byte(cfg.JWTSecret)))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.RateLimit(cfg.RateLimitRPS))
	if rdb != nil {
		e.Use(middleware.Idempotency(rdb, cfg.IdempotencyTTL(), log))
	}

	checks := []httpadp.Check{{Name: "db", Fn: sqlDB.PingContext}}
	if rdb != nil {
		checks = append(checks, httpadp.Check{Name: "redis", Fn: cache.Ping(rdb)})
	}
	httpadp.Register(e,
		httpadp.NewHandler(checks...),
		httpadp.NewLoanHandler(engine, log),
		httpadp.NewPriceHandler(prices, log),
	)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info("listening", "addr", addr, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return loan.NewScheduler(engine, cfg.PaybackCaller, cfg.PaybackInterval, clockwork.NewRealClock(), log).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

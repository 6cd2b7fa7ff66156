package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadp "lendledger/internal/adapter/http"
	"lendledger/internal/adapter/repository/redisstore"
	"lendledger/internal/infrastructure/cache"
	"lendledger/internal/infrastructure/db"
	"lendledger/internal/infrastructure/metrics"
	"lendledger/internal/usecase/allocation"
	"lendledger/internal/usecase/enrichment"
	idemuc "lendledger/internal/usecase/idempotency"
	loanuc "lendledger/internal/usecase/loan"
	"lendledger/internal/usecase/reminder"
	"lendledger/internal/usecase/repayment"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	var (
		autoMigrate bool
		noReminders bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), autoMigrate, !noReminders)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run schema migrations before serving")
	cmd.Flags().BoolVar(&noReminders, "no-reminders", false, "do not schedule the payment reminder sweep")
	return cmd
}

func runServe(parent context.Context, autoMigrate, reminders bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logrus.StandardLogger()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()
	if autoMigrate {
		if err := db.Migrate(st.db); err != nil {
			return err
		}
	}

	rdb, err := cache.OpenRedis(parent, cache.RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Timeout: cfg.StoreTimeout})
	if err != nil {
		return err
	}
	defer rdb.Close()

	sink := newSink(cfg, st)
	defer sink.Close()
	receipts, err := newReceiptStore(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	guard := idemuc.NewGuard(redisstore.NewIdempotencyStore(rdb), cfg.IdempotencyTTL)
	guard.Replayed = m.Replayed

	alloc := allocation.NewUsecase(st.loans, st.parts, st.users, st.tx, sink)
	e := httpadp.NewServer(httpadp.Deps{
		Loans:      loanuc.NewUsecase(st.loans, st.parts, alloc, sink),
		Allocation: alloc,
		Views:      enrichment.NewUsecase(st.loans, st.parts, st.banks, st.users, alloc),
		Repayments: repayment.NewUsecase(st.loans, st.parts, st.payments, st.tx, receipts, sink),
		Guard:      guard,
		Checks: []httpadp.Check{
			{Name: "database", Ping: func(ctx context.Context) error {
				sqlDB, err := st.db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Metrics:      m,
		Logger:       log,
		JWTSecret:    []byte(cfg.JWTSecret),
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		StoreTimeout: cfg.StoreTimeout,
	})

	sched := cron.New(cron.WithLocation(time.UTC))
	if reminders {
		job := reminder.NewJob(st.loans, sink, cfg.ReminderLookaheadDays)
		if _, err := job.Schedule(sched, cfg.ReminderCron); err != nil {
			return err
		}
		sched.Start()
		log.WithField("cron", cfg.ReminderCron).Info("reminder: scheduled")
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		<-sched.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	vipgin "github.com/PaulFidika/vipkit/adapters/gin"
	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/jobs"
	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/PaulFidika/vipkit/payments/razorpay"
	memorylimiter "github.com/PaulFidika/vipkit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/vipkit/ratelimit/redis"
	memorystore "github.com/PaulFidika/vipkit/storage/memory"
	redisstore "github.com/PaulFidika/vipkit/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const orderTTL = 24 * time.Hour

func serveCmd() *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the expired-VIP sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, noSweep)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not schedule the expired-VIP sweep on this replica")
	return cmd
}

func runServe(ctx context.Context, noSweep bool) error {
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	signer, err := jwtkit.NewHMACSigner(a.cfg.JWTSecret, a.cfg.JWTTTL)
	if err != nil {
		return err
	}
	audit := core.LogrusAudit{Log: a.log.WithField("component", "audit")}

	var (
		orders  payments.OrderCache
		limiter ginutil.RateLimiter
	)
	if a.rdb != nil {
		orders = redisstore.NewOrderCache(a.rdb, "", orderTTL)
		limiter = redislimiter.New(a.rdb, rateLimits(func(n int, w time.Duration) redislimiter.Limit {
			return redislimiter.Limit{Limit: n, Window: w}
		}))
	} else {
		mem := memorystore.NewOrderCache(orderTTL)
		defer mem.Close()
		orders = mem
		limiter = memorylimiter.New(rateLimits(func(n int, w time.Duration) memorylimiter.Limit {
			return memorylimiter.Limit{Limit: n, Window: w}
		}))
	}

	api := &vipgin.API{
		Auth:     core.NewService(a.users, a.vip, signer).WithAudit(audit).WithLogger(a.log),
		VIP:      a.vip,
		Payments: payments.NewService(a.users, payments.WithOrders(orders), payments.WithAudit(audit), payments.WithLogger(a.log)),
		Razorpay: razorpay.New(razorpay.Config{
			KeyID:             a.cfg.Razorpay.KeyID,
			KeySecret:         a.cfg.Razorpay.KeySecret,
			PublicKeyID:       a.cfg.Razorpay.PublicKeyID,
			APIURL:            a.cfg.Razorpay.APIURL,
			Timeout:           a.cfg.Razorpay.Timeout,
			RequestsPerSecond: a.cfg.Razorpay.RPS,
		}, a.log),
		PayU: payu.New(payu.Config{
			MerchantKey:  a.cfg.PayU.MerchantKey,
			MerchantSalt: a.cfg.PayU.MerchantSalt,
			BaseURL:      a.cfg.APIURL,
			ProductInfo:  a.cfg.PayU.ProductInfo,
		}),
		Orders:     orders,
		Limiter:    limiter,
		Audit:      audit,
		AdminToken: a.cfg.AdminToken,
		Log:        a.log,
	}
	if !api.Razorpay.Configured() {
		a.log.Warn("Razorpay credentials not set; Razorpay endpoints will fail")
	}
	if !api.PayU.Configured() {
		a.log.Warn("PayU credentials not set; PayU endpoints will fail")
	}
	if a.cfg.AdminToken == "" {
		a.log.Warn("ADMIN_TOKEN not set; admin routes are unauthenticated")
	}

	if !noSweep {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				a.log.WithError(err).Warn("sweep scheduler stop")
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           vipgin.NewEngine(api),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newScheduler prefers river so that only one replica sweeps per tick.
func newScheduler(a *app) (jobs.Scheduler, error) {
	log := a.log.WithField("component", "sweep")
	if a.pool != nil {
		return jobs.NewRiverScheduler(a.pool, a.vip, a.cfg.SweepSchedule, log)
	}
	return jobs.NewCronScheduler(a.vip, a.cfg.SweepSchedule, log)
}

// rateLimits is shared by the Redis and in-memory limiters.
func rateLimits[L any](mk func(n int, w time.Duration) L) map[string]L {
	return map[string]L{
		"default":                 mk(100, time.Minute),
		ginutil.RLAuthSignup:      mk(5, time.Hour),
		ginutil.RLAuthLogin:       mk(10, 15*time.Minute),
		ginutil.RLPaymentsCreate:  mk(20, time.Hour),
		ginutil.RLPaymentsVerify:  mk(30, time.Hour),
		ginutil.RLAdminRevokeVIPs: mk(10, time.Minute),
	}
}

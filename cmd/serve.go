package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/config"
	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/monitoring"
	"github.com/sells-group/health-advisor/internal/scheduler"
	"github.com/sells-group/health-advisor/internal/scrape"
	"github.com/sells-group/health-advisor/internal/server"
	"github.com/sells-group/health-advisor/internal/session"
)

// Scheduled job names.
const (
	jobIRDAI        = "refresh-irdai"
	jobClaims       = "refresh-claims"
	jobSessionSweep = "session-sweep"
)

const (
	sessionSweepInterval = time.Hour
	shutdownTimeout      = 15 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the advisor HTTP API and background market data refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initAdvisor(cfg)
		scrapers := initScrapers(cfg.Scrape)
		refresher := scrapers.Refresher(cfg.Market.KeepOnError)
		sessions := session.NewStore(time.Duration(cfg.Session.TTLHours) * time.Hour)

		if cfg.Schedule.Enabled {
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			sched, err := newScheduler(cfg.Schedule, refresher, sessions, alerter)
			if err != nil {
				return err
			}
			stopSched := sched.Start(ctx)
			defer stopSched()
		} else {
			zap.L().Info("background refresh disabled")
		}

		srv := server.New(server.Deps{
			Advisor:      env.Advisor,
			DB:           env.DB,
			DBWarning:    env.DBWarning,
			Sessions:     sessions,
			Refresher:    refresher,
			Terms:        scrapers.Terms,
			DisplayLimit: cfg.Market.DisplayLimit,
			CORSOrigins:  cfg.Server.CORSOrigins,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("model_available", env.Advisor.Available()),
			zap.Int("policies", env.DB.PolicyCount()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newScheduler registers the IRDAI and claims refresh jobs and the session
// sweep. A cron expression replaces the matching interval. Refresh outcomes
// are reported to alerter, which may be nil.
func newScheduler(c config.ScheduleConfig, r *market.Refresher, sessions *session.Store, alerter *monitoring.Alerter) (*scheduler.Scheduler, error) {
	refreshJob := func(job, source string) func(context.Context) error {
		return func(ctx context.Context) error {
			err := r.Refresh(ctx, source)
			alerter.Observe(ctx, job, err)
			return err
		}
	}
	jobs := []scheduler.Job{
		{
			Name:       jobIRDAI,
			Every:      time.Duration(c.IRDAIIntervalHours) * time.Hour,
			Cron:       c.IRDAICron,
			RunOnStart: c.RunOnStart,
			Fn:         refreshJob(jobIRDAI, scrape.SourceIRDAI),
		},
		{
			Name:       jobClaims,
			Every:      time.Duration(c.ClaimsIntervalHours) * time.Hour,
			Cron:       c.ClaimsCron,
			RunOnStart: c.RunOnStart,
			Fn:         refreshJob(jobClaims, scrape.SourceClaims),
		},
		{
			Name:  jobSessionSweep,
			Every: sessionSweepInterval,
			Fn: func(context.Context) error {
				sessions.Sweep()
				return nil
			},
		},
	}
	sched, err := scheduler.New(time.Duration(c.PollIntervalSecs)*time.Second, jobs...)
	if err != nil {
		return nil, eris.Wrap(err, "serve: build scheduler")
	}
	return sched, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

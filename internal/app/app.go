package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"schedbot/internal/config"
	"schedbot/internal/directory"
	"schedbot/internal/dispatch"
	"schedbot/internal/metrics"
	"schedbot/internal/observability/pprof"
	"schedbot/internal/runtime/supervisor"
	"schedbot/internal/storage"
	"schedbot/internal/task/scheduler"
	"schedbot/internal/transport"
	"schedbot/internal/transport/discord"
	"schedbot/internal/web"
	logx "schedbot/pkg/logx"
)

const (
	jobDispatch  = "dispatch:tick"
	jobDirectory = "directory:refresh"

	directoryRefreshTimeout = 30 * time.Second
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter transport.Adapter

	cache     *directory.Cache
	refresher *directory.Refresher
	disp      *dispatch.Dispatcher
	sched     *scheduler.Service
	web       *web.Server
	pprof     *pprof.Service

	tickSpec    string
	refreshSpec string
}

func NewApp(cfgPath string) (*App, error) {
	if err := config.LoadDotEnv(cfgPath); err != nil {
		return nil, err
	}
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "discord"))
	ad, err := discord.New(mapDiscordConfig(cfg), bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg), ad)
	app := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		adapter: ad,
	}
	// Once logx exists the adapter logs through it like everything else.
	ad.SetLogger(log.With(logx.String("comp", "discord")))

	if err := app.build(cfg, log); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return app, nil
}

// build wires every component that does not need a live session.
func (a *App) build(cfg *config.Config, log logx.Logger) error {
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	dc, err := mapDispatchConfig(cfg)
	if err != nil {
		return err
	}
	wc, err := mapWebConfig(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	a.store = store
	a.log.Info("storage opened", logx.String("driver", sc.Driver), logx.String("path", sc.Path))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a.cache = directory.NewCache()
	a.refresher = directory.NewRefresher(a.adapter, a.cache, log.With(logx.String("comp", "directory")), m)
	a.disp = dispatch.New(dc, store, a.adapter, log.With(logx.String("comp", "dispatch")), m)
	a.sched = scheduler.New(log.With(logx.String("comp", "scheduler")))

	a.tickSpec, a.refreshSpec = intervals(cfg)
	if err := a.sched.AddSchedule(jobDispatch, a.tickSpec, scheduler.Options{}, a.disp.Run); err != nil {
		_ = store.Close()
		return fmt.Errorf("scheduler.interval: %w", err)
	}
	if err := a.sched.AddSchedule(jobDirectory, a.refreshSpec, scheduler.Options{Timeout: directoryRefreshTimeout, Spread: true}, a.refresher.Refresh); err != nil {
		_ = store.Close()
		return fmt.Errorf("directory.interval: %w", err)
	}

	a.web = web.New(wc, web.Deps{
		Queue:     store,
		Directory: a.cache,
		Defaults:  mapDefaults(cfg),
		Ticks:     a.disp,
		Metrics:   m,
		Gatherer:  reg,
		Status:    a.status,
	}, log.With(logx.String("comp", "web")))
	a.pprof = pprof.New(log.With(logx.String("comp", "pprof")))
	return nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if _, err := mapDispatchConfig(cfg); err != nil {
			return err
		}
		if _, err := mapWebConfig(cfg); err != nil {
			return err
		}
		_, err := mapPprofConfig(cfg)
		return err
	})

	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	if err := a.web.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("web: %w", err)
	}
	a.sched.Start(a.sup.Context())

	// pprof is optional; a bad bind is logged and never blocks startup.
	if pc, err := mapPprofConfig(a.cfgm.Get()); err != nil {
		a.log.Warn("invalid pprof config; profiler disabled", logx.Err(err))
	} else {
		_ = a.pprof.Reconfigure(a.sup.Context(), pc)
	}

	// The roster is only complete after READY; refresh once then instead of
	// waiting a full directory interval.
	a.sup.Go0("directory.initial", func(c context.Context) {
		select {
		case <-c.Done():
			return
		case <-a.adapter.Ready():
		}
		if !a.sched.RunNow(c, jobDirectory) {
			a.log.Debug("initial directory refresh skipped; refresh already running")
		}
		snap := a.cache.Load()
		a.log.Info("directory ready",
			logx.Uint64("generation", snap.Generation),
			logx.Int("channels", len(snap.Channels)),
			logx.Int("roles", len(snap.Roles)),
		)
	})

	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, time.Minute))

	a.log.Info("app started",
		logx.String("web", a.web.Addr()),
		logx.String("tick", a.tickSpec),
		logx.String("refresh", a.refreshSpec),
	)
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return a.closeResources()
	}
	a.log.Info("stopping")

	// Cancel first so background loops start unwinding immediately.
	a.sup.Cancel()

	var errs []error
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step failed", logx.String("name", name), logx.Duration("took", time.Since(start)), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("web", 10*time.Second, func(c context.Context) error {
		a.web.Stop(c)
		return nil
	})
	step("pprof", 3*time.Second, func(c context.Context) error {
		a.pprof.Stop(c)
		return nil
	})
	// Waits for an in-flight tick so its current send and delete complete.
	step("scheduler", 20*time.Second, func(c context.Context) error {
		a.sched.Stop(c)
		return nil
	})
	step("supervisor", 5*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	step("discord", 5*time.Second, a.adapter.Stop)

	a.log.Info("stopped")
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

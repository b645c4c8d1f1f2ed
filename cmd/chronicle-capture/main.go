package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"chronicle/internal/modkit"
	"chronicle/internal/modkit/module"
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/logger"
	"chronicle/internal/platform/store"

	"chronicle/internal/adapters/upstream/crm"
	capturedom "chronicle/internal/services/capture/domain"
	capturemod "chronicle/internal/services/capture/module"
	snapmod "chronicle/internal/services/snapshots/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	crmCfg := root.Prefix("SERVICE_CRM_")

	l := logger.Get()
	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			Migrate:     pgCfg.MayBool("MIGRATE", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fOnce  = flag.Bool("once", true, "run a single capture pass and exit")
		fCron  = flag.String("cron", "", "cron spec for repeated passes (implies -once=false)")
		fSince = flag.String("since", "", "RFC3339 window start override")
		fUntil = flag.String("until", "", "RFC3339 window end override")
	)
	flag.Parse()

	var window capturedom.Window
	if *fSince != "" {
		t, err := time.Parse(time.RFC3339, *fSince)
		if err != nil {
			l.Panic().Err(err).Msg("bad -since")
		}
		window.Since = t
	}
	if *fUntil != "" {
		t, err := time.Parse(time.RFC3339, *fUntil)
		if err != nil {
			l.Panic().Err(err).Msg("bad -until")
		}
		window.Until = t
	}

	// Shared deps for modules
	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	// Upstream client (reads SERVICE_CRM_*)
	source := crm.NewClient(crm.Options{
		BaseURL:    crmCfg.MustString("BASE_URL"),
		Token:      crmCfg.MayString("TOKEN", ""),
		Timeout:    crmCfg.MayDuration("TIMEOUT", 15*time.Second),
		MaxRetries: crmCfg.MayInt("RETRIES", 5),
		PageSize:   crmCfg.MayInt("PAGE_SIZE", 200),
	})

	// Snapshots module owns the snapshot store ports
	sm := snapmod.New(deps)
	module.Register(sm.Name(), sm.Ports())

	// Capture module consumes the upstream source and the snapshot ports
	cm := capturemod.New(
		deps,
		modkit.WithPorts(capturedom.Ports{
			Snapshots: module.MustPortsOf[snapmod.Ports](sm),
			Source:    source,
		}),
	)
	module.Register(cm.Name(), cm.Ports())
	runner := cm.Ports().(capturemod.Ports).Runner

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pass := func() error {
		run, err := runner.RunCapture(ctx, window)
		if err != nil {
			return err
		}
		l.Info().
			Str("run_id", run.ID).
			Int("processed", run.RecordsProcessed).
			Int("new_snapshots", run.NewSnapshots).
			Int("changes", run.ChangesDetected).
			Int("errors", run.RecordErrors).
			Msg("capture pass done")
		return nil
	}

	if *fCron == "" && *fOnce {
		if err := pass(); err != nil {
			l.Fatal().Err(err).Msg("capture failed")
		}
		return
	}

	spec := *fCron
	if spec == "" {
		spec = "@every 15m"
	}
	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		if err := pass(); err != nil {
			l.Error().Err(err).Msg("capture pass failed")
		}
	})
	if err != nil {
		l.Panic().Err(err).Str("spec", spec).Msg("bad -cron")
	}
	c.Start()
	l.Info().Str("spec", spec).Msg("capture scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	l.Info().Msg("capture scheduler stopped")
}

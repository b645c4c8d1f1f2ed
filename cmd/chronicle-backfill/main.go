package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"chronicle/internal/modkit"
	"chronicle/internal/modkit/module"
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/logger"
	"chronicle/internal/platform/store"

	"chronicle/internal/adapters/upstream/crm"
	backfilldom "chronicle/internal/services/backfill/domain"
	backfillmod "chronicle/internal/services/backfill/module"
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
		fLookback = flag.Duration("lookback", 3*365*24*time.Hour, "how far back to sweep for records to seed")
		fIDs      = flag.String("ids", "", "comma separated record ids to seed instead of a sweep")
	)
	flag.Parse()

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

	// Backfill module consumes the upstream source and the snapshot ports
	bf := backfillmod.New(
		deps,
		modkit.WithPorts(backfilldom.Ports{
			Snapshots: module.MustPortsOf[snapmod.Ports](sm),
			Source:    source,
		}),
	)
	module.Register(bf.Name(), bf.Ports())
	runner := bf.Ports().(backfillmod.Ports).Runner

	ctx := context.Background()

	var sum backfilldom.Summary
	if *fIDs != "" {
		ids := strings.Split(*fIDs, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		sum, err = runner.RunIDs(ctx, ids)
	} else {
		sum, err = runner.Run(ctx, *fLookback)
	}
	if err != nil {
		l.Fatal().Err(err).Msg("backfill failed")
	}

	l.Info().
		Int("total", sum.Total).
		Int("seeded", sum.Succeeded).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Dur("took", sum.Duration).
		Msg("backfill done")
}

package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"matchbook/internal/modkit"
	"matchbook/internal/modkit/module"
	"matchbook/internal/modkit/repokit"
	"matchbook/internal/platform/config"
	"matchbook/internal/platform/logger"
	"matchbook/internal/platform/store"

	"matchbook/internal/core/recordkey"
	"matchbook/internal/services/reconcile/domain"
	reconcilemod "matchbook/internal/services/reconcile/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	// env defaults under CORE_RECONCILE_*, flags win when set
	envOpts := reconcilemod.FromConfig(root)

	var (
		fRoot        = flag.String("root", envOpts.Root, "submission drop directory to reconcile")
		fFrom        = flag.String("from", "", "inclusive visit date lower bound YYYY-MM-DD")
		fTo          = flag.String("to", "", "inclusive visit date upper bound YYYY-MM-DD")
		fDryRun      = flag.Bool("dry-run", envOpts.DryRun, "correlate and report without writing anything")
		fSampleLimit = flag.Int("sample-limit", envOpts.SampleLimit, "max residual keys sampled into diagnostics")
	)
	flag.Parse()

	if *fRoot == "" {
		l.Panic().Msg("must provide -root (or CORE_RECONCILE_ROOT)")
	}

	var from, to recordkey.Date
	if *fFrom != "" {
		d, err := recordkey.ParseDate(*fFrom)
		if err != nil {
			l.Panic().Err(err).Msg("bad -from")
		}
		from = d
	}
	if *fTo != "" {
		d, err := recordkey.ParseDate(*fTo)
		if err != nil {
			l.Panic().Err(err).Msg("bad -to")
		}
		to = d
		if !from.IsZero() && to.Before(from) {
			l.Panic().Str("from", from.String()).Str("to", to.String()).Msg("-to before -from")
		}
	}

	chEnabled := chCfg.MayBool("ENABLED", true)
	storeCfg := store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
		CH: store.CHConfig{
			Enabled:    chEnabled,
			ClientName: "matchbook",
			ClientTag:  "reconcile",
		},
	}
	if chEnabled {
		storeCfg.CH.URL = chCfg.MustString("DBURL")
	}

	st, err := store.Open(context.Background(), storeCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// batch job: fail fast if a backend is unreachable
	repokit.MustGuard(context.Background(), st)

	// surface flag overrides to modules that read FromConfig
	mustSetEnv("CORE_RECONCILE_SAMPLE_LIMIT", strconv.Itoa(*fSampleLimit))

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	rm := reconcilemod.New(deps)
	module.Register(rm.Name(), rm.Ports())
	ports := rm.Ports().(reconcilemod.Ports)

	run, err := ports.Runner.Reconcile(context.Background(), domain.RunRequest{
		Root:   *fRoot,
		From:   from,
		To:     to,
		DryRun: *fDryRun,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("reconcile failed")
	}

	l.Info().
		Str("run_id", run.ID.String()).
		Str("status", string(run.Status)).
		Bool("dry_run", run.DryRun).
		Int("submissions", run.Tally.Submissions).
		Int("outcomes", run.Tally.Outcomes).
		Int("matched", run.Tally.Matched).
		Int("orphaned", run.Tally.Orphaned).
		Int("residual", run.Tally.Residual).
		Msg("reconcile finished")
}

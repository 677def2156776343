package module

import (
	"matchbook/internal/platform/config"
	"matchbook/internal/services/reconcile/service"
)

// Options holds configuration options for the reconcile engine
type Options struct {
	Root        string
	SampleLimit int
	DryRun      bool
}

// FromConfig reads the reconcile options from config with CORE_RECONCILE_ prefix
func FromConfig(cfg config.Conf) Options {
	rc := cfg.Prefix("CORE_RECONCILE_")
	return Options{
		Root:        rc.MayString("ROOT", ""),
		SampleLimit: rc.MayInt("SAMPLE_LIMIT", service.DefaultSampleLimit),
		DryRun:      rc.MayBool("DRY_RUN", false),
	}
}

package di

import (
	"ohlcv_ingestor/internal/feature/ohlcv/usecase"
	"ohlcv_ingestor/internal/platform/config"
)

// ToTarget converts a configured target into the usecase form.
func ToTarget(t config.Target) usecase.Target {
	return usecase.Target{
		Name:             t.Name,
		Code:             t.Code,
		Country:          t.Country,
		IndexCode:        t.IndexCode,
		WindowDays:       t.WindowDays,
		DefaultExchange:  t.DefaultExchange,
		DefaultChunkDays: t.DefaultChunkDays,
	}
}

// Targets exposes the configured targets to the HTTP handler.
type Targets struct {
	cfg *config.Config
}

func NewTargets(cfg *config.Config) Targets { return Targets{cfg: cfg} }

// LookupTarget returns the named target.
func (t Targets) LookupTarget(name string) (usecase.Target, bool) {
	ct, err := t.cfg.LookupTarget(name)
	if err != nil {
		return usecase.Target{}, false
	}
	return ToTarget(ct), true
}

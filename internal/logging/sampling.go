package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with per-level sampling. Each configured level
// gets its own sampler; Error and above, and any level without an entry,
// always pass through.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	sampled := make(map[zapcore.Level]bool, len(cfg.Levels))
	cores := make([]zapcore.Core, 0, len(cfg.Levels)+1)
	for lvl, rate := range cfg.Levels {
		if lvl >= zapcore.ErrorLevel {
			continue
		}
		sampled[lvl] = true
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{Core: core, accept: onlyLevel(lvl)},
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}

	passthrough := &levelFilterCore{
		Core:   core,
		accept: func(l zapcore.Level) bool { return !sampled[l] },
	}
	return zapcore.NewTee(append(cores, passthrough)...)
}

func onlyLevel(want zapcore.Level) func(zapcore.Level) bool {
	return func(l zapcore.Level) bool { return l == want }
}

// levelFilterCore forwards only the levels accepted by its predicate.
type levelFilterCore struct {
	zapcore.Core
	accept func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.accept(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.accept(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:   c.Core.With(fields),
		accept: c.accept,
	}
}

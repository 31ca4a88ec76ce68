package api

import "context"

type configKey struct{}

// WithConfig attaches an execution configuration to the context. The engine
// reads it during evaluation, e.g. to decide whether pure plot components
// run.
func WithConfig(ctx context.Context, cfg Configuration) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFromContext returns the configuration attached via WithConfig, or
// the zero-value default when none is set.
func ConfigFromContext(ctx context.Context) Configuration {
	cfg, _ := ctx.Value(configKey{}).(Configuration)
	return cfg
}

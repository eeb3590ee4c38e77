package configwatcher

import "github.com/HustleDanie/Realtime-Vision-System-sub001/pkg/edgebuffer"

// WithConfigWatcher returns an edgebuffer Option that enables live config
// reload. When enabled, the plugin monitors the agent's config file for
// changes and applies the live-tunable settings without a restart.
//
// Usage:
//
//	b, err := edgebuffer.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) edgebuffer.Option {
	plugin := New(cfg)
	return edgebuffer.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns an edgebuffer Option that enables live
// config reload with default settings (debounce 100ms).
//
// Usage:
//
//	b, err := edgebuffer.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() edgebuffer.Option {
	return WithConfigWatcher(DefaultConfig())
}

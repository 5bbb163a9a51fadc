// Package config provides loading and environment overlay for Pulse
// runtime configuration. It exposes a Default() baseline, a JSON file
// loader, and a PULSE_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/pulse.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Config: cfg})
//	defer rt.Close()
package config

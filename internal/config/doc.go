// Package config provides loading and environment overlay for fip runtime
// configuration. It exposes a Default() baseline, optional JSON file loading,
// and a FromEnv overlay of FIP_* variables.
//
// Example:
//
//	cfg, _ := config.Load("")
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close()
package config

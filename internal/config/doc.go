// Package config loads the reactivecache CLI configuration.
//
// The file format is chosen by extension: .json, .yaml/.yml or .toml.
// Missing sections keep their defaults.
//
// # Configuration File Structure
//
//	cache:
//	  capacity: 128
//	log:
//	  level: info
//	  format: text
//	inspect:
//	  address: 127.0.0.1:7070
//	  buffer_size: 1024
//	  drive_interval: 500ms
//	bench:
//	  chain_length: 64
//	  fan_out: 32
//	  writes: 1000
//	  iterations: 3
//
// # Usage
//
//	cfg, err := config.Load("reactivecache.yaml")
//	if err != nil {
//	    errors.PrintError(os.Stderr, err)
//	    os.Exit(1)
//	}
//	logger := cfg.Logger(os.Stderr)
package config

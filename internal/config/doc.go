// Package config handles loading and managing NOAI configuration.
//
// Configuration is read from noai.json at the project root:
//
//	{
//	    "server": {
//	        "host": "0.0.0.0",
//	        "port": 8080
//	    },
//	    "notifications": {
//	        "pollInterval": "30s",
//	        "probability": 0.1
//	    },
//	    "backend": {
//	        "failureRate": 0.05
//	    },
//	    "optimistic": {
//	        "policy": "drop"
//	    }
//	}
//
// A .env file next to noai.json and NOAI_* environment variables are
// layered on top (see ApplyEnv). Missing fields fall back to New().
//
// # Loading
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil { ... }
//	if err := cfg.ApplyEnv("."); err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
package config

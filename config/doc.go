// Package config provides application configuration management.
//
// The config package loads reqbox settings from YAML files and REQBOX_*
// environment variables using viper. It covers the server transport, the
// pre-request script sandbox budget and capability list, the outgoing
// HTTP client, request history and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Script budget: %s\n", cfg.GetScriptTimeout())
package config

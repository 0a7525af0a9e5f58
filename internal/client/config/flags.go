package config

import (
	"flag"
	"os"

	"github.com/godiscuss/godiscuss/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-relay string   base URL of the session relay
//	-server string  base URL of the backend (direct mode)
//	-db string      backend database name
//	-cache string   path to the local cache database
//
// os.Args is filtered to only the flags handled here so other components'
// flags pass through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-relay", "-server", "-db", "-cache"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "base URL of the session relay")
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "base URL of the backend server")
	fs.StringVar(&cfg.Database, "db", cfg.Database, "backend database name")
	fs.StringVar(&cfg.DBPath, "cache", cfg.DBPath, "path to the local cache database")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

package config

import (
	"flag"
	"os"
	"strings"

	"github.com/godiscuss/godiscuss/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        listen address (host:port)
//	-secret string   cookie signing/sealing secret
//	-mode string     cookie mode: store | sealed
//	-store string    session store backend: memory | redis
//	-redis string    redis address (host:port)
//	-origins string  comma-separated allowed origins
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-secret", "-mode", "-store", "-redis", "-origins"})

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "listen address")
	fs.StringVar(&cfg.CookieSecret, "secret", cfg.CookieSecret, "cookie secret")
	fs.StringVar(&cfg.CookieMode, "mode", cfg.CookieMode, "cookie mode (store|sealed)")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "session store backend (memory|redis)")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address")
	origins := fs.String("origins", "", "comma-separated allowed origins")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *origins != "" {
		cfg.AllowedOrigins = strings.Split(*origins, ",")
	}
}

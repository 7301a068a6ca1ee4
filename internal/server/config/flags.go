package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m string   store driver: postgres, mongo or memory
//	-d string   PostgreSQL DSN
//	-s string   session signing secret
//	-r string   Redis URL
//	-n string   notifier: log or queue
//	-t int      reset token validity, minutes; applied only when given
//	-l string   log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so -c and -env-file pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-s", "-r", "-n", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.StoreDriver, "m", config.StoreDriver, "store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session secret")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	resetTokenTTL := fs.Int("t", int(config.ResetTokenTTL.Minutes()), "reset_token_ttl (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only an explicit -t replaces a finer TTL from the JSON or env layers
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.ResetTokenTTL = time.Duration(*resetTokenTTL) * time.Minute
		}
	})
}

// Package config builds the daemon's configuration surface: a cobra
// command whose persistent flags are bound to viper, each one also
// settable by a TRL_-prefixed environment variable, optionally seeded
// from a .env file first.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for one daemon run.
type Config struct {
	SocketPath         string
	MaxSessions        int
	DefaultTimeoutS    uint64
	MaxOutputBytes     int
	MaxIdleSec         uint64
	SessionTTLSec      uint64
	SessionMaxCommands uint64
	FDWarningThreshold uint64
	MemoryPressureMB   uint64
	ChildCPUSec        uint64
	ChildMemoryBytes   uint64
	ChildNProc         uint64
	AllowRoot          bool
	EnvFile            string
	RuntimeEnv         map[string]string
}

// NewCommand builds the root cobra.Command with every daemon option bound
// as a persistent flag, each paired with a viper binding so it can also be
// set by environment variable. run is invoked with the resolved Config
// once cobra parses args.
func NewCommand(run func(cfg *Config) error) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "trld",
		Short: "Terminal Runtime Layer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("socket-path", "/tmp/trl.sock", "Unix domain socket path to listen on")
	flags.Int("max-sessions", 64, "maximum number of concurrently pooled sessions")
	flags.Uint64("default-timeout-s", 60, "default per-command timeout in seconds")
	flags.Int("max-output-bytes", 4*1024*1024, "maximum bytes captured per stdout/stderr stream")
	flags.Uint64("max-idle-sec", 3600, "idle session GC threshold in seconds")
	flags.Uint64("session-ttl-sec", 86400, "hard session lifetime in seconds")
	flags.Uint64("session-max-commands", 1000, "per-session command ceiling")
	flags.Uint64("fd-warning-threshold", 5000, "open file descriptor pressure trigger")
	flags.Uint64("memory-pressure-mb", 500, "resident memory pressure trigger in MiB")
	flags.Uint64("child-cpu-sec", 300, "per-child CPU time limit in seconds")
	flags.Uint64("child-memory-bytes", 512*1024*1024, "per-child address-space limit in bytes")
	flags.Uint64("child-nproc", 64, "per-child process count limit")
	flags.Bool("allow-root", false, "permit running with effective UID 0")
	flags.String("env-file", "", "optional .env file to load before resolving config")

	for _, name := range []string{
		"socket-path", "max-sessions", "default-timeout-s", "max-output-bytes",
		"max-idle-sec", "session-ttl-sec", "session-max-commands",
		"fd-warning-threshold", "memory-pressure-mb", "child-cpu-sec",
		"child-memory-bytes", "child-nproc", "allow-root", "env-file",
	} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	v.SetEnvPrefix("TRL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return cmd
}

// resolve loads the optional env file (env_file flag, falling back to
// TRL_ENV_FILE via viper's own binding) and builds the final Config.
func resolve(v *viper.Viper) (*Config, error) {
	envFile := v.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %q: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	runtimeEnv := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			runtimeEnv[kv[:idx]] = kv[idx+1:]
		}
	}

	return &Config{
		SocketPath:         v.GetString("socket-path"),
		MaxSessions:        v.GetInt("max-sessions"),
		DefaultTimeoutS:    v.GetUint64("default-timeout-s"),
		MaxOutputBytes:     v.GetInt("max-output-bytes"),
		MaxIdleSec:         v.GetUint64("max-idle-sec"),
		SessionTTLSec:      v.GetUint64("session-ttl-sec"),
		SessionMaxCommands: v.GetUint64("session-max-commands"),
		FDWarningThreshold: v.GetUint64("fd-warning-threshold"),
		MemoryPressureMB:   v.GetUint64("memory-pressure-mb"),
		ChildCPUSec:        v.GetUint64("child-cpu-sec"),
		ChildMemoryBytes:   v.GetUint64("child-memory-bytes"),
		ChildNProc:         v.GetUint64("child-nproc"),
		AllowRoot:          v.GetBool("allow-root"),
		EnvFile:            envFile,
		RuntimeEnv:         runtimeEnv,
	}, nil
}

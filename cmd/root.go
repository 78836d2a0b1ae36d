package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/storage"
)

// cli carries state shared by every command once the root has loaded it.
type cli struct {
	viper      *viper.Viper
	configFile string
	cfg        *config.Config
	logger     zerolog.Logger
	logCloser  io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{viper: config.NewViper(), logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "cadence",
		Short: "Phase timer for planning, focus and break cycles",
		Long: `Cadence cycles through planning, focus and break phases, showing the
current phase in the system tray and announcing each transition.

Configuration is read from $HOME/.cadence.yaml, .env files and CADENCE_*
environment variables. Phase lengths live in a separate settings file.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default is $HOME/.cadence.yaml)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "auto", "log format (auto, json, console)")
	flags.String("log-output", "stderr", "log output (stderr, stdout, discard or a file path)")
	flags.Bool("no-color", false, "disable colored console logs")
	flags.String("settings", "", "phase settings file (default is in the user config dir)")
	mustBind(c.viper, config.KeyLogLevel, flags.Lookup("log-level"))
	mustBind(c.viper, config.KeyLogFormat, flags.Lookup("log-format"))
	mustBind(c.viper, config.KeyLogOutput, flags.Lookup("log-output"))
	mustBind(c.viper, config.KeyLogNoColor, flags.Lookup("no-color"))
	mustBind(c.viper, config.KeySettingsPath, flags.Lookup("settings"))

	root.AddCommand(newRunCmd(c), newPhasesCmd(c), newConfigCmd(c), newAutostartCmd(c))
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.viper, config.LoadOptions{ConfigFile: c.configFile})
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, closer, err := logging.New(loggingConfig(cfg))
	if err != nil {
		return err
	}
	c.logger = logger
	c.logCloser = closer

	if used := c.viper.ConfigFileUsed(); used != "" {
		c.logger.Debug().Str("path", used).Msg("using config file")
	}
	return nil
}

// loggingConfig layers cfg over the logging defaults, which carry NO_COLOR.
func loggingConfig(cfg *config.Config) logging.Config {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Format = cfg.LogFormat
	logCfg.Output = cfg.LogOutput
	logCfg.NoColor = logCfg.NoColor || cfg.LogNoColor
	return logCfg
}

func (c *cli) settingsPath() (string, error) {
	if c.cfg != nil && c.cfg.SettingsPath != "" {
		return c.cfg.SettingsPath, nil
	}
	return storage.DefaultPath(appName)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s flag: %v", key, err))
	}
}

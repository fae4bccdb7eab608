package main

import (
	"fmt"
	"os"

	"github.com/clovervm/clover/config"
	"github.com/clovervm/clover/vm"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// loadConfig reads the config file and applies environment and flag
// overrides on top of it.
func loadConfig(v *viper.Viper) (config.Config, error) {
	var cfg config.Config
	if path := v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	} else {
		path, err := homedir.Expand(defaultConfigPath)
		if err != nil {
			return cfg, err
		}
		if cfg, err = config.LoadIfExists(path); err != nil {
			return cfg, err
		}
	}
	if v.IsSet("log-level") {
		cfg.Log.Level = v.GetString("log-level")
	}
	if v.IsSet("stack-size") {
		cfg.VM.StackSize = v.GetInt("stack-size")
	}
	if v.IsSet("drain-threshold") {
		cfg.VM.DrainThreshold = v.GetInt("drain-threshold")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, noColor bool) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// newMachine creates a machine configured from v. The caller closes it.
func newMachine(v *viper.Viper) (*vm.Machine, zerolog.Logger, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := newLogger(cfg, v.GetBool("no-color"))
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	m, err := vm.New(vm.WithConfig(cfg), vm.WithLogger(log))
	if err != nil {
		return nil, log, err
	}
	return m, log, nil
}

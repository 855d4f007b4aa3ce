package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"netguard/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "NETGUARD_LOG_LEVEL")
	viper.BindEnv("monitor.scanInterval", "NETGUARD_SCAN_INTERVAL")
	viper.BindEnv("monitor.flushInterval", "NETGUARD_FLUSH_INTERVAL")
	viper.BindEnv("persistence.saveInterval", "NETGUARD_SAVE_INTERVAL")
	viper.BindEnv("cache.enabled", "NETGUARD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "NETGUARD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "NetGuardDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

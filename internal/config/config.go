// Package config loads the optional project configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// DefaultFileList is the file list used when neither the configuration
// nor the command line names one.
const DefaultFileList = "files"

// Target is one build file to keep in sync.
type Target struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // empty means auto-detect
}

// Config holds the project configuration.
type Config struct {
	FileList string   `mapstructure:"file_list"`
	Targets  []Target `mapstructure:"targets"`
}

// Load reads the configuration from path, or searches the working
// directory for mksync.yaml when path is empty. A missing configuration
// is not an error in search mode: the defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mksync")
		v.AddConfigPath(".")
	}

	cfg := &Config{FileList: DefaultFileList}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", v.ConfigFileUsed(), err)
	}
	if cfg.FileList == "" {
		cfg.FileList = DefaultFileList
	}
	return cfg, nil
}

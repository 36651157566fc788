package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/bullpen/internal/paths"
	"github.com/mesh-intelligence/bullpen/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyModelArtifact     = "model_artifact"
	cfgKeySnapshotRetention = "snapshot_retention"
	cfgKeyFailFast          = "fail_fast"

	// Upstream model output folders, relative to the working directory.
	defaultNRFISourceDir    = "../ScratchModelV3-5/data"
	defaultInningsSourceDir = "../MLB-Innings-1-5/data"
)

// defaultConfig is written to config.yaml on first run.
func defaultConfig() types.Config {
	return types.Config{
		ModelArtifact:     types.DefaultModelArtifact,
		SnapshotRetention: types.DefaultSnapshotRetention,
		FailFast:          true,
		Datasets:          types.DefaultDatasets(defaultNRFISourceDir, defaultInningsSourceDir),
	}
}

const configHeader = "# bullpen configuration\n" +
	"# data_dir and state_dir are optional; --data-dir and BULLPEN_DATA_DIR override\n" +
	"# data_dir, BULLPEN_STATE_DIR overrides the default state_dir.\n\n"

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyModelArtifact, types.DefaultModelArtifact)
	v.SetDefault(cfgKeySnapshotRetention, types.DefaultSnapshotRetention)
	v.SetDefault(cfgKeyFailFast, true)
	v.SetEnvPrefix("BULLPEN")
	for _, key := range []string{cfgKeySnapshotRetention, cfgKeyFailFast, cfgKeyModelArtifact} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in configDir.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}

// settings is the resolved configuration of one invocation.
type settings struct {
	configDir string
	cfg       types.Config
}

// loadSettings resolves directories and reads config.yaml. Relative paths
// in the file are taken against the working directory.
func loadSettings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, sysError(err)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return settings{}, userError(fmt.Errorf("parse %s: %w", v.ConfigFileUsed(), err))
	}

	if cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, cfg.DataDir); err != nil {
		return settings{}, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	if cfg.StateDir, err = paths.ResolveStateDir(cfg.StateDir); err != nil {
		return settings{}, sysError(fmt.Errorf("resolve state dir: %w", err))
	}
	cwd, err := os.Getwd()
	if err != nil {
		return settings{}, sysError(err)
	}
	cfg.ModelArtifact = paths.ResolveRelative(cwd, cfg.ModelArtifact)
	for i := range cfg.Datasets {
		cfg.Datasets[i].SourceDir = paths.ResolveRelative(cwd, cfg.Datasets[i].SourceDir)
	}
	return settings{configDir: configDir, cfg: cfg}, nil
}

package coremain

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pmkol/ringlist/mlog"
)

type serverFlags struct {
	c         string
	dir       string
	cpu       int
	watch     bool
	asService bool
}

var rootCmd = &cobra.Command{
	Use:   "ringlist",
	Short: "Allocator-aware list soak runner.",
}

func init() {
	sf := new(serverFlags)
	startCmd := &cobra.Command{
		Use:   "start [-c config_file] [-d working_dir] [--watch]",
		Short: "Run the configured workloads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sf.asService {
				svc, err := service.New(&serverService{f: sf}, svcCfg)
				if err != nil {
					return fmt.Errorf("failed to init service, %w", err)
				}
				return svc.Run()
			}
			return StartServer(sf)
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
	rootCmd.AddCommand(startCmd)
	fs := startCmd.Flags()
	fs.StringVarP(&sf.c, "config", "c", "", "config file")
	fs.StringVarP(&sf.dir, "dir", "d", "", "working dir")
	fs.IntVar(&sf.cpu, "cpu", 0, "set runtime.GOMAXPROCS")
	fs.BoolVar(&sf.watch, "watch", false, "reload workloads when the config file changes")
	fs.BoolVar(&sf.asService, "as-service", false, "start as a service")
	fs.MarkHidden("as-service")

	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage ringlist as a system service.",
	}
	serviceCmd.PersistentPreRunE = initService
	serviceCmd.AddCommand(
		newSvcInstallCmd(),
		newSvcUninstallCmd(),
		newSvcStartCmd(),
		newSvcStopCmd(),
		newSvcRestartCmd(),
		newSvcStatusCmd(),
	)
	rootCmd.AddCommand(serviceCmd)
}

func AddSubCmd(c *cobra.Command) {
	rootCmd.AddCommand(c)
}

func Run() error {
	return rootCmd.Execute()
}

// prepare applies sf to the process and loads the full config.
func prepare(sf *serverFlags) (*Config, string, error) {
	if sf.cpu > 0 {
		runtime.GOMAXPROCS(sf.cpu)
	}

	if len(sf.dir) > 0 {
		err := os.Chdir(sf.dir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to change the current working directory, %w", err)
		}
		mlog.L().Info("working directory changed", zap.String("path", sf.dir))
	}

	cfg, fileUsed, err := loadFullConfig(sf.c)
	if err != nil {
		return nil, "", err
	}
	return cfg, fileUsed, nil
}

func StartServer(sf *serverFlags) error {
	cfg, fileUsed, err := prepare(sf)
	if err != nil {
		return err
	}

	r, err := NewRinglist(cfg)
	if err != nil {
		return fmt.Errorf("failed to init ringlist, %w", err)
	}
	if sf.watch {
		watchConfig(fileUsed, r)
	}
	r.handleSignals()
	r.Start()
	if err := r.Wait(); err != nil {
		return fmt.Errorf("ringlist exited, %w", err)
	}
	return nil
}

func loadFullConfig(filePath string) (*Config, string, error) {
	cfg, fileUsed, err := loadConfig(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("fail to load config, %w", err)
	}
	if err := mergeInclude(cfg, 0, []string{fileUsed}); err != nil {
		return nil, "", fmt.Errorf("failed to load sub config file, %w", err)
	}
	return cfg, fileUsed, nil
}

func decoderOpt(cfg *mapstructure.DecoderConfig) {
	cfg.ErrorUnused = true
	cfg.TagName = "yaml"
	cfg.WeaklyTypedInput = true
}

// loadConfig load a config from a file. If filePath is empty, it will
// automatically search and load a file which name start with "config".
func loadConfig(filePath string) (*Config, string, error) {
	v := viper.New()

	if len(filePath) > 0 {
		v.SetConfigFile(filePath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}

// watchConfig reloads r's workloads whenever filePath is written.
// Included files are re-read but not watched.
func watchConfig(filePath string, r *Ringlist) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filePath)
	v.OnConfigChange(func(e fsnotify.Event) {
		lg := r.logger.With(zap.String("file", e.Name), zap.Stringer("op", e.Op))
		cfg, _, err := loadFullConfig(filePath)
		if err != nil {
			lg.Warn("config changed but cannot be loaded", zap.Error(err))
			return
		}
		if err := r.Reload(cfg); err != nil {
			lg.Warn("config changed but is rejected", zap.Error(err))
		}
	})
	v.WatchConfig()
	r.logger.Info("watching config", zap.String("file", filePath))
	return v
}

func mergeInclude(cfg *Config, depth int, paths []string) error {
	depth++
	if depth > 8 {
		return fmt.Errorf("maximum include depth reached, include path is %s", strings.Join(paths, " -> "))
	}

	includedCfg := new(Config)
	for _, subCfgFile := range cfg.Include {
		subPaths := append(paths, subCfgFile)
		mlog.L().Info("reading sub config", zap.String("file", subCfgFile))
		subCfg, _, err := loadConfig(subCfgFile)
		if err != nil {
			return fmt.Errorf("failed to load sub config, %w", err)
		}
		if err := mergeInclude(subCfg, depth, subPaths); err != nil {
			return err
		}

		includedCfg.Workloads = append(includedCfg.Workloads, subCfg.Workloads...)
	}

	cfg.Workloads = append(includedCfg.Workloads, cfg.Workloads...)
	return nil
}

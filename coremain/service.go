package coremain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmkol/ringlist/mlog"
)

var svcCfg = &service.Config{
	Name:        "ringlist",
	DisplayName: "ringlist",
	Description: "Allocator-aware list soak runner.",
}

var svc service.Service

type serverService struct {
	f *serverFlags
	r *Ringlist
}

func (ss *serverService) Start(s service.Service) error {
	mlog.L().Info("starting service", zap.String("platform", s.Platform()))
	cfg, fileUsed, err := prepare(ss.f)
	if err != nil {
		return err
	}
	r, err := NewRinglist(cfg)
	if err != nil {
		return fmt.Errorf("failed to init ringlist, %w", err)
	}
	if ss.f.watch {
		watchConfig(fileUsed, r)
	}
	ss.r = r
	r.Start()
	go func() {
		if err := r.Wait(); err != nil {
			mlog.L().Error("ringlist exited", zap.Error(err))
			os.Exit(1)
		}
	}()
	return nil
}

func (ss *serverService) Stop(s service.Service) error {
	mlog.L().Info("service is shutting down")
	if ss.r != nil {
		ss.r.GetSafeClose().CloseWait()
	}
	return nil
}

func initService(_ *cobra.Command, _ []string) error {
	s, err := service.New(&serverService{}, svcCfg)
	if err != nil {
		return fmt.Errorf("cannot init service, %w", err)
	}
	svc = s
	return nil
}

func newSvcInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [-d working_dir] [-c config_file] [--watch]",
		Short: "Install ringlist as a system service.",
		Long: "Install ringlist as a system service. Flags are passed to the start command.\n" +
			"The working dir defaults to the directory of the executable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				ep, err := os.Executable()
				if err != nil {
					return fmt.Errorf("failed to get executable path, %w", err)
				}
				args = []string{"-d", filepath.Dir(ep)}
			}
			svcCfg.Arguments = append([]string{"start", "--as-service"}, args...)
			s, err := service.New(&serverService{}, svcCfg)
			if err != nil {
				return fmt.Errorf("failed to init service, %w", err)
			}
			return s.Install()
		},
		DisableFlagParsing: true,
		SilenceUsage:       true,
	}
}

func newSvcUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall ringlist from system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return svc.Uninstall()
		},
		SilenceUsage: true,
	}
}

func newSvcStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start ringlist system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return svc.Start()
		},
		SilenceUsage: true,
	}
}

func newSvcStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop ringlist system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return svc.Stop()
		},
		SilenceUsage: true,
	}
}

func newSvcRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart ringlist system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return svc.Restart()
		},
		SilenceUsage: true,
	}
}

func newSvcStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Status of ringlist system service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := svc.Status()
			if err != nil {
				if errors.Is(err, service.ErrNotInstalled) {
					fmt.Println("not installed")
					return nil
				}
				return fmt.Errorf("cannot get service status, %w", err)
			}
			var out string
			switch s {
			case service.StatusRunning:
				out = "running"
			case service.StatusStopped:
				out = "stopped"
			default:
				out = "unknown"
			}
			fmt.Println(out)
			return nil
		},
		SilenceUsage: true,
	}
}

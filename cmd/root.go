package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdbackup "github.com/tidalwave-it/solidblue/cmd/backup"
	cmdcore "github.com/tidalwave-it/solidblue/cmd/core"
	cmdothers "github.com/tidalwave-it/solidblue/cmd/others"
	cmdscan "github.com/tidalwave-it/solidblue/cmd/scan"
	"github.com/tidalwave-it/solidblue/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "solidblue",
		Short:        "SolidBlue - personal data-integrity manager",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmdcore.CommandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("app-dir", "", "application state directory (catalog database)")
	cmd.PersistentFlags().String("working-dir", "", "scratch area for encrypted backup staging")
	cmd.PersistentFlags().String("volumes-dir", "", "where the OS mounts removable volumes (default: /Volumes)")
	cmd.PersistentFlags().String("key-file", "", "key file for encrypted backup containers")

	_ = viper.BindPFlag("app_dir", cmd.PersistentFlags().Lookup("app-dir"))
	_ = viper.BindPFlag("working_dir", cmd.PersistentFlags().Lookup("working-dir"))
	_ = viper.BindPFlag("volumes_dir", cmd.PersistentFlags().Lookup("volumes-dir"))
	_ = viper.BindPFlag("key_file", cmd.PersistentFlags().Lookup("key-file"))

	viper.SetEnvPrefix("SOLIDBLUE")
	viper.AutomaticEnv()

	confProvider := func() *config.Config { return conf }
	base := cmdcore.BaseHandler{ConfProvider: confProvider}

	cmd.AddCommand(cmdscan.Command(cmdscan.Handler{BaseHandler: base}))
	cmd.AddCommand(cmdbackup.Command(cmdbackup.Handler{BaseHandler: base}))
	for _, c := range cmdothers.Commands(cmdothers.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

// Execute is the main entry point called from main.go.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()
	// Unset bound flags would otherwise unmarshal as "" over the defaults.
	viper.SetDefault("app_dir", conf.AppDir)
	viper.SetDefault("working_dir", conf.WorkingDir)
	viper.SetDefault("volumes_dir", conf.VolumesDir)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if err := viper.ReadInConfig(); err != nil {
		// No config file is OK; a corrupt/unreadable one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var err error
	conf, err = config.EnsureDirs(conf)
	if err != nil {
		return fmt.Errorf("ensure dirs: %w", err)
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

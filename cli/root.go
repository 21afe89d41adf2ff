// Package cli is the unionhall command line: the backend server plus the
// maintenance and client tools around it.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"unionhall/common"
	"unionhall/config"
	"unionhall/database"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "unionhall",
	Short: "Union community site backend and client tools",
	Long: `unionhall serves the union community site API (boards, members,
settings, push notifications) and ships the tools to administer it and to
sync a client snapshot against a running backend.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "unionhall.yml", "config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openDatabase connects to the main database and brings its schema up to
// date.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := common.ConnectDb(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

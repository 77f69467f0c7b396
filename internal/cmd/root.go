package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "taper",
	Short: "Inspect and manage taper log files",
	Long: `Taper reads the NDJSON log files the taper engine writes: view and
filter records, follow the active file as it rotates, export records to
other formats, and sweep aged files.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("dir", "d", "", "log directory (default \"logs\")")
	rootCmd.PersistentFlags().StringP("prefix", "p", "", "log file name prefix (default \"app\")")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default taper.yaml in . or $HOME/.config/taper)")
	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("prefix", rootCmd.PersistentFlags().Lookup("prefix"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	viper.SetDefault("dir", "logs")
	viper.SetDefault("prefix", "app")
	viper.SetDefault("rotation.maxAge", "168h")

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("taper")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$XDG_CONFIG_HOME/taper")
		viper.AddConfigPath("$HOME/.config/taper")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing config files are fine; flags and defaults cover everything.
	_ = viper.ReadInConfig()
}

func logDir() string {
	return viper.GetString("dir")
}

func logPrefix() string {
	return viper.GetString("prefix")
}

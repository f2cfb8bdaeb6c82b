package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/blacklist"
	"github.com/retrace-dev/retrace/pkg/history"
)

var cfgFile string

const (
	LOGO = `	           _
	 _ __ ___| |_ _ __ __ _  ___ ___
	| '__/ _ \ __| '__/ _` + "`" + ` |/ __/ _ \
	| | |  __/ |_| | | (_| | (_|  __/
	|_|  \___|\__|_|  \__,_|\___\___|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "retrace",
	Short: "A browsing-history feed with blacklist filtering, domain analytics and per-page chat.",
	Long: LOGO + `retrace reads your browser's history database and turns it into a filtered,
paginated feed with per-domain visit analytics. Pick any page and chat about it
through OpenAI, Anthropic, Gemini or a custom endpoint.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.retrace.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".retrace")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.retrace.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.endpoint", "")
	viper.SetDefault("history.path", defaultHistoryPath())
	viper.SetDefault("feed.batch_size", 20)
	viper.SetDefault("blacklist.overrides_path", defaultOverridesPath())

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

func defaultHistoryPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "google-chrome", "Default", "History")
}

func defaultOverridesPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".retrace-blacklist.json"
	}
	return filepath.Join(home, ".retrace-blacklist.json")
}

// openSource opens the configured history database.
func openSource() (*history.ChromiumSource, error) {
	path := viper.GetString("history.path")
	if path == "" {
		return nil, fmt.Errorf("no history database configured (set history.path)")
	}
	return history.OpenChromium(path)
}

// loadRules merges the bundled blacklist with the user override store.
func loadRules() (*blacklist.RuleSet, error) {
	return blacklist.Load(viper.GetString("blacklist.overrides_path"))
}

func overrideStore() *blacklist.OverrideStore {
	return blacklist.NewOverrideStore(viper.GetString("blacklist.overrides_path"))
}

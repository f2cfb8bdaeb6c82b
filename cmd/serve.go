package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retrace-dev/retrace/internal/server"
	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/llm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feed, stats and chat over a local JSON API",
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")

		source, err := openSource()
		if err != nil {
			utils.Log.Fatal(err)
		}
		defer source.Close()

		srv := server.New(
			source,
			viper.GetString("blacklist.overrides_path"),
			llm.Config{
				Provider: viper.GetString("llm.provider"),
				APIKey:   viper.GetString("llm.api_key"),
				Model:    viper.GetString("llm.model"),
				Endpoint: viper.GetString("llm.endpoint"),
			},
			viper.GetInt("feed.batch_size"),
			user, pass,
		)

		if err := srv.Start(addr); err != nil {
			utils.Log.Fatal(err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8483", "Listen address")
	serveCmd.Flags().String("username", "", "Basic auth username (empty disables auth)")
	serveCmd.Flags().String("password", "", "Basic auth password")
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/blacklist"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the blacklist override rules",
	Long: `Manage the user override rules that are merged with the bundled blacklist.
Domain rules match the full hostname (wildcards allowed, e.g. "*.ads.com");
pattern rules match anywhere inside the URL (e.g. "utm_source=").`,
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundled and override rules",
	Run: func(cmd *cobra.Command, args []string) {
		bundled, err := blacklist.Bundled()
		if err != nil {
			utils.Log.Fatal(err)
		}
		overrides, err := overrideStore().Load()
		if err != nil {
			utils.Log.Fatal(err)
		}

		printRules := func(label string, r blacklist.Rules) {
			fmt.Printf("%s:\n", label)
			for _, d := range r.Domains {
				fmt.Printf("  domain   %s\n", d)
			}
			for _, p := range r.Patterns {
				fmt.Printf("  pattern  %s\n", p)
			}
		}
		printRules("Bundled", bundled)
		printRules("Overrides", overrides)
	},
}

var blacklistAddDomainCmd = &cobra.Command{
	Use:   "add-domain <domain>",
	Short: "Add a domain rule to the overrides",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rule := args[0]
		if root, _ := cmd.Flags().GetBool("root"); root {
			rule = blacklist.RootWildcard(rule)
		}
		if err := overrideStore().AddDomain(rule); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Added domain rule:", rule)
	},
}

var blacklistAddPatternCmd = &cobra.Command{
	Use:   "add-pattern <pattern>",
	Short: "Add a URL pattern rule to the overrides",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := overrideStore().AddPattern(args[0]); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Added pattern rule:", args[0])
	},
}

var blacklistRemoveDomainCmd = &cobra.Command{
	Use:   "remove-domain <domain>",
	Short: "Remove a domain rule from the overrides",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := overrideStore().RemoveDomain(args[0]); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Removed domain rule:", args[0])
	},
}

var blacklistRemovePatternCmd = &cobra.Command{
	Use:   "remove-pattern <pattern>",
	Short: "Remove a URL pattern rule from the overrides",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := overrideStore().RemovePattern(args[0]); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Removed pattern rule:", args[0])
	},
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every override rule (bundled rules are kept)",
	Run: func(cmd *cobra.Command, args []string) {
		if err := overrideStore().Clear(); err != nil {
			utils.Log.Fatal(err)
		}
		fmt.Println("Overrides cleared.")
	},
}

func init() {
	blacklistAddDomainCmd.Flags().Bool("root", false, "Reduce the host to its registrable domain and add it as a wildcard")
	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistAddDomainCmd)
	blacklistCmd.AddCommand(blacklistAddPatternCmd)
	blacklistCmd.AddCommand(blacklistRemoveDomainCmd)
	blacklistCmd.AddCommand(blacklistRemovePatternCmd)
	blacklistCmd.AddCommand(blacklistClearCmd)
	rootCmd.AddCommand(blacklistCmd)
}

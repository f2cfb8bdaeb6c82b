package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/retrace-dev/retrace/internal/utils"
	"github.com/retrace-dev/retrace/pkg/chat"
	"github.com/retrace-dev/retrace/pkg/llm"
)

// chatStore lives for the process: transcripts survive across messages in
// one interactive session and are gone on exit.
var chatStore = chat.NewStore()

var chatCmd = &cobra.Command{
	Use:   "chat <url>",
	Short: "Chat about a page from your history",
	Long: `Chat about a page from your history through the configured LLM provider.
With -m a single message is sent; without it an interactive session starts.
Use --fetch to download the page text first and ground answers on it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pageURL := args[0]
		message, _ := cmd.Flags().GetString("message")
		fetchFirst, _ := cmd.Flags().GetBool("fetch")

		ctx := context.Background()

		if fetchFirst {
			fetchPage(ctx, pageURL)
		}

		provider, err := llm.New(llm.Config{
			Provider: viper.GetString("llm.provider"),
			APIKey:   viper.GetString("llm.api_key"),
			Model:    viper.GetString("llm.model"),
			Endpoint: viper.GetString("llm.endpoint"),
		})
		if err != nil {
			// Missing credentials are an instruction, not a crash: tell
			// the user what to configure and leave the transcript intact.
			fmt.Printf("[config] %s\n", err)
			fmt.Println("[config] Edit ~/.retrace.yaml (llm.provider, llm.api_key) and try again.")
			return
		}

		if message != "" {
			sendMessage(ctx, provider, pageURL, message)
			return
		}

		fmt.Printf("Chatting about %s with %s. Ctrl-D to quit.\n", pageURL, provider.Name())
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			sendMessage(ctx, provider, pageURL, line)
		}
	},
}

func fetchPage(ctx context.Context, pageURL string) {
	fetcher := chat.NewFetcher()
	title, text, err := fetcher.FetchPageText(ctx, pageURL)
	if err != nil {
		// Surfaced inline; the user can retry with --fetch again.
		fmt.Printf("[fetch] %s\n", err)
		return
	}
	chatStore.SetPageContent(pageURL, text)
	utils.Log.Infof("fetched %q (%d chars of context)", title, len(text))
}

func sendMessage(ctx context.Context, provider llm.Provider, pageURL, message string) {
	chatStore.Append(pageURL, chat.Message{Role: chat.RoleUser, Text: message})

	var pageContext string
	if t, ok := chatStore.Get(pageURL); ok {
		pageContext = t.PageContent
	}

	reply, err := provider.Send(ctx, message, pageContext)
	if err != nil {
		// Provider failures land in the transcript as an inline notice so
		// the conversation stays usable and the user can just resend.
		var perr *llm.ProviderError
		if errors.As(err, &perr) {
			reply = "[error] " + perr.Reason
		} else {
			reply = "[error] " + err.Error()
		}
	}

	chatStore.Append(pageURL, chat.Message{Role: chat.RoleAssistant, Text: reply})
	fmt.Println(reply)
}

func init() {
	chatCmd.Flags().StringP("message", "m", "", "Send a single message instead of starting a session")
	chatCmd.Flags().Bool("fetch", false, "Fetch the page content first and use it as context")
	rootCmd.AddCommand(chatCmd)
}

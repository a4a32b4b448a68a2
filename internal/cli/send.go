package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clipmarker/clipmarker-agent/internal/api"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a command to the running agent",
	Long: `Queue a command on the running agent, the same way a hotkey or the
tray menu would. Known commands:

  ` + strings.Join(tagNames(), "\n  "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: tagNames(),
	RunE:      runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	tag, err := dispatch.ParseTag(args[0])
	if err != nil {
		return err
	}

	client, err := newAgentClient(cmd.Context())
	if err != nil {
		return err
	}

	var resp api.CommandAcceptedResponse
	if err := client.do(cmd.Context(), http.MethodPost, "/commands/"+string(tag), &resp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queued %s (#%d)\n", resp.Tag, resp.Seq)
	return nil
}

func tagNames() []string {
	names := make([]string, len(dispatch.Tags))
	for i, t := range dispatch.Tags {
		names[i] = string(t)
	}
	return names
}

package cli

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/clipmarker/clipmarker-agent/internal/api"
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "List the clips of the current session",
	Args:  cobra.NoArgs,
	RunE:  runClips,
}

var commandsLimit int

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Show recently dispatched commands",
	Args:  cobra.NoArgs,
	RunE:  runCommands,
}

func init() {
	commandsCmd.Flags().IntVarP(&commandsLimit, "limit", "n", 20, "number of commands to show")
}

func runClips(cmd *cobra.Command, args []string) error {
	client, err := newAgentClient(cmd.Context())
	if err != nil {
		return err
	}

	var status api.StatusResponse
	if err := client.do(cmd.Context(), http.MethodGet, "/status", &status); err != nil {
		return err
	}

	printStatus(color.Output, status)
	return nil
}

func runCommands(cmd *cobra.Command, args []string) error {
	client, err := newAgentClient(cmd.Context())
	if err != nil {
		return err
	}

	var resp api.CommandsResponse
	path := "/commands?limit=" + strconv.Itoa(commandsLimit)
	if err := client.do(cmd.Context(), http.MethodGet, path, &resp); err != nil {
		return err
	}

	printCommands(color.Output, resp.Commands)
	return nil
}

func printStatus(w io.Writer, s api.StatusResponse) {
	bold := color.New(color.Bold, color.Underline)
	faint := color.New(color.Faint)

	if s.SessionID == "" {
		_, _ = faint.Fprintln(w, "no active session")
		return
	}

	_, _ = bold.Fprint(w, "Session "+s.SessionID)
	switch n := len(s.Clips); n {
	case 1:
		_, _ = faint.Fprintln(w, " - 1 clip")
	default:
		_, _ = faint.Fprintf(w, " - %d clips\n", n)
	}

	if len(s.Clips) > 0 {
		_, _ = fmt.Fprintln(w, clipTable(s.Clips))
	}

	if s.Draft.Start != "" || s.Draft.End != "" {
		_, _ = faint.Fprintf(w, "draft: %s - %s\n", orDash(s.Draft.Start), orDash(s.Draft.End))
	}
	if s.Notification != nil && s.Notification.Visible {
		_, _ = color.New(color.FgHiYellow).Fprintln(w, s.Notification.Text)
	}
}

func clipTable(clips []api.ClipResponse) *uitable.Table {
	bold := color.New(color.Bold)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("#"), bold.Sprint("Start"), bold.Sprint("End"), bold.Sprint("Name"))
	for _, c := range clips {
		tbl.AddRow(c.Ordinal, c.StartTime, c.EndTime, c.Name)
	}
	tbl.RightAlign(0)
	return tbl
}

func printCommands(w io.Writer, cmds []api.CommandResponse) {
	if len(cmds) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(w, "no commands yet")
		return
	}

	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold.Sprint("Seq"), bold.Sprint("Command"), bold.Sprint("Origin"), bold.Sprint("State"), bold.Sprint("Received"), bold.Sprint("Error"))
	for _, c := range cmds {
		state := c.State
		switch state {
		case "APPLIED":
			state = green.Sprint(state)
		case "REJECTED":
			state = red.Sprint(state)
		}
		tbl.AddRow(c.Seq, c.Tag, c.Origin, state, c.ReceivedAt, c.Error)
	}
	tbl.RightAlign(0)

	_, _ = fmt.Fprintln(w, tbl)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

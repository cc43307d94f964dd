// Command pppoat tunnels PPP (and other link-layer) traffic between two
// hosts over a user-chosen transport. See spec.md §6 for the CLI
// surface this file implements.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pasis/pppoat2/internal/app"
	"github.com/pasis/pppoat2/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds pppoat's single cobra command, following the
// teacher's cmd/vcs/main.go shape (&cobra.Command{Use, Short, Long,
// Version}, a RunE closure, rootCmd.Execute()+os.Exit(1) on error):
// pppoat has one command rather than the teacher's thirty, so the
// flags that would otherwise belong to subcommands bind directly here.
func newRootCommand() *cobra.Command {
	var flags config.Flags

	cmd := &cobra.Command{
		Use:     "pppoat [key=value ...]",
		Short:   "Tunnel PPP traffic over an arbitrary transport",
		Long:    "pppoat carries PPP frames between a local link-layer endpoint\n(pppd, tun, tap, stdio) and a peer process over a chosen transport\n(udp, http, xmpp).\n\nRegistered modules:\n" + indent(app.ListModules()),
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// cobra supplies -h/--help itself and short-circuits RunE, so
		// spec.md §6's -h/--help flag needs no explicit binding here.
		RunE: func(_ *cobra.Command, args []string) error {
			return app.Run(app.Options{Flags: flags, Positional: args})
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&flags.Config, "config", "c", "", "INI config file")
	cmd.Flags().StringVarP(&flags.Interface, "interface", "i", "", "interface module (default \"pppd\")")
	cmd.Flags().StringVarP(&flags.Transport, "transport", "t", "", "transport module (default \"udp\")")
	cmd.Flags().BoolVarP(&flags.Server, "server", "s", false, "run in server mode")
	cmd.Flags().BoolVarP(&flags.List, "list", "l", false, "list registered modules and exit")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func indent(lines []string) string {
	out := ""
	for _, l := range lines {
		out += "  " + l + "\n"
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plugin-server/internal/app"
	"plugin-server/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveFlags struct {
	configPath string
	root       string
	host       string
	port       int
	logLevel   string
	watch      bool
}

func newRootCmd() *cobra.Command {
	flags := &serveFlags{}

	root := &cobra.Command{
		Use:   "plugin-server",
		Short: "Serve static plugin assets with permissive CORS",
		Long: `plugin-server serves the files of one plugin directory over HTTP.

Running it without a sub-command is the same as "plugin-server serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	serve := &cobra.Command{
		Use:          "serve",
		Short:        "Start the HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	for _, c := range []*cobra.Command{root, serve} {
		f := c.Flags()
		f.StringVarP(&flags.configPath, "config", "c", "", "optional YAML config file")
		f.StringVar(&flags.root, "root", "", "directory to serve (default: plugins next to the executable)")
		f.StringVar(&flags.host, "host", config.DefaultHost, "bind address")
		f.IntVarP(&flags.port, "port", "p", config.DefaultPort, "bind port")
		f.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
		f.BoolVar(&flags.watch, "watch", false, "log plugin file changes under the root")
	}

	root.AddCommand(serve)
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the plugin-server version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plugin-server %s\n", version)
		},
	})

	return root
}

// overridesFrom keeps only flags set on the command line so that file and
// environment values are not masked by flag defaults.
func overridesFrom(cmd *cobra.Command, flags *serveFlags) config.Overrides {
	var o config.Overrides
	f := cmd.Flags()
	if f.Changed("root") {
		o.Root = &flags.root
	}
	if f.Changed("host") {
		o.Host = &flags.host
	}
	if f.Changed("port") {
		o.Port = &flags.port
	}
	if f.Changed("log-level") {
		o.LogLevel = &flags.logLevel
	}
	if f.Changed("watch") {
		o.Watch = &flags.watch
	}
	return o
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := config.Load(config.Options{
		ConfigPath: flags.configPath,
		Overrides:  overridesFrom(cmd, flags),
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Run(ctx, cfg)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sqlcoderd/internal/launcher"
)

// BuildRootCmd constructs the Cobra command tree wired to the fn* actions.
func BuildRootCmd(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlcoderctl",
		Short:         "Deploy and invoke SQL generation serving apps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("state-dir", cfg.StateDir, "Directory for deployments and secrets (defaults SQLCODERCTL_STATE_DIR or ~/.sqlcoderd)")
	root.PersistentFlags().String("preset", cfg.Preset, "Model preset id (defaults SQLCODERCTL_PRESET or the catalog default)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults SQLCODERCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("state-dir"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.StateDir = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("preset"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Preset = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	deployCmd := &cobra.Command{
		Use:     "deploy [app]",
		Short:   "Deploy the preset's serving container and wait until ready",
		Example: "  sqlcoderctl deploy\n  sqlcoderctl deploy tgi-sqlcoder2 --port 8000 --daemon-bin ./bin/sqlcoderd",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := deployOpts{Preset: cfg.Preset}
			if len(args) == 1 {
				opts.App = args[0]
			}
			opts.HostIP, _ = cmd.Flags().GetString("host")
			opts.Port, _ = cmd.Flags().GetInt("port")
			opts.DaemonBin, _ = cmd.Flags().GetString("daemon-bin")
			opts.CacheVolume, _ = cmd.Flags().GetString("cache-volume")
			opts.ReadyTimeout, _ = cmd.Flags().GetDuration("ready-timeout")
			return fnDeploy(cfg, opts)
		},
	}
	deployCmd.Flags().String("host", "127.0.0.1", "Host interface to bind the serving port on")
	deployCmd.Flags().Int("port", 8000, "Host port for the serving endpoint")
	deployCmd.Flags().String("daemon-bin", "", "Host path of the daemon binary mounted into the container")
	deployCmd.Flags().String("cache-volume", "", "Named volume for the weights cache")
	deployCmd.Flags().Duration("ready-timeout", 15*time.Minute, "How long to wait for readiness")
	root.AddCommand(deployCmd)

	invokeCmd := &cobra.Command{
		Use:     "invoke <app> <question...>",
		Short:   "Send a question to a deployed app and print the generated SQL",
		Example: "  sqlcoderctl invoke tgi-sqlcoder2 \"How many salespeople are there?\"\n  sqlcoderctl invoke tgi-sqlcoder2 --stream \"How many sales last month?\"",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := invokeOpts{App: args[0], Question: strings.Join(args[1:], " ")}
			opts.MetadataFile, _ = cmd.Flags().GetString("metadata-file")
			opts.Stream, _ = cmd.Flags().GetBool("stream")
			opts.SQLOnly, _ = cmd.Flags().GetBool("sql-only")
			opts.MaxNewTokens, _ = cmd.Flags().GetInt("max-new-tokens")
			return fnInvoke(cfg, opts)
		},
	}
	invokeCmd.Flags().String("metadata-file", "", "File with the table metadata (DDL); empty uses the built-in example schema")
	invokeCmd.Flags().Bool("stream", false, "Stream tokens as they are generated")
	invokeCmd.Flags().Bool("sql-only", false, "Trim the markdown fence from the output")
	invokeCmd.Flags().Int("max-new-tokens", 0, "Cap on generated tokens (0 uses the server default)")
	root.AddCommand(invokeCmd)

	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage named secrets used at deploy time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("secret requires a subcommand: set|rm")
		},
	}
	secretSetCmd := &cobra.Command{
		Use:     "set <name> <value>",
		Short:   "Store a secret",
		Example: "  sqlcoderctl secret set huggingface hf_...",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnSecretSet(cfg, args[0], args[1])
		},
	}
	secretRmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnSecretRm(cfg, args[0])
		},
	}
	secretCmd.AddCommand(secretSetCmd, secretRmCmd)
	root.AddCommand(secretCmd)

	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Pre-download the preset's weights into the hub cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := downloadOpts{Preset: cfg.Preset}
			opts.ServerBin, _ = cmd.Flags().GetString("server-bin")
			opts.CacheDir, _ = cmd.Flags().GetString("cache-dir")
			return fnDownload(cfg, opts)
		},
	}
	downloadCmd.Flags().String("server-bin", launcher.DefaultServerBin, "text-generation-server binary to run")
	downloadCmd.Flags().String("cache-dir", "", "Hub cache directory (empty uses the engine default)")
	root.AddCommand(downloadCmd)

	statusCmd := &cobra.Command{
		Use:   "status [app]",
		Short: "Show a deployment's container and serving state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := ""
			if len(args) == 1 {
				app = args[0]
			}
			return fnStatus(cfg, app)
		},
	}
	root.AddCommand(statusCmd)

	stopCmd := &cobra.Command{
		Use:   "stop [app]",
		Short: "Stop a deployment and remove its record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := ""
			if len(args) == 1 {
				app = args[0]
			}
			return fnStop(cfg, app)
		},
	}
	root.AddCommand(stopCmd)

	runCmd := &cobra.Command{
		Use:   "run [question...]",
		Short: "Invoke the default app, with an example revenue question when none is given",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnRun(cfg, strings.Join(args, " "))
		},
	}
	root.AddCommand(runCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}

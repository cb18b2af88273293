package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/remake-build/remake/internal/version"
	"github.com/remake-build/remake/pkg/executor"
	"github.com/remake-build/remake/pkg/logging"
	"github.com/remake-build/remake/pkg/remakefile"
	"github.com/remake-build/remake/pkg/style"
)

var (
	verbosity  int
	dryRun     bool
	clean      bool
	rebuild    bool
	quiet      bool
	configFile string

	rootCmd = &cobra.Command{
		Use:   "remake [targets...]",
		Short: "A declarative, make-like build tool",
		Long: `remake builds targets from declarative rule files. A ReMakeFile declares
builders, rules and pattern rules; remake resolves the dependency graph and
runs only the actions whose targets are out of date.`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			style.DisableColorsIfNotTTY()
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := executor.Options{
				DryRun:  dryRun,
				Clean:   clean,
				Rebuild: rebuild,
				Quiet:   quiet,
			}
			runner := remakefile.NewRunner(opts, configFile)

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			_, err = runner.ExecuteFromDirectory(cmd.Context(), cwd, args)
			return err
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "f", "", "Remakefile to use (default: ReMakeFile.toml, ReMakeFile.yaml, ReMakeFile)")

	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Announce actions without executing them")
	rootCmd.Flags().BoolVarP(&clean, "clean", "c", false, "Clean specified targets")
	rootCmd.Flags().BoolVarP(&rebuild, "rebuild", "r", false, "Perform a full rebuild (clean and build)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the progress bar")
	rootCmd.MarkFlagsMutuallyExclusive("clean", "rebuild")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(graphCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remake version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `To load completions:

Bash:
  $ source <(remake completion bash)

Zsh:
  $ remake completion zsh > "${fpath[1]}/_remake"

Fish:
  $ remake completion fish | source

PowerShell:
  PS> remake completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			if err := cmd.Root().GenBashCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate bash completion")
			}
		case "zsh":
			if err := cmd.Root().GenZshCompletion(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate zsh completion")
			}
		case "fish":
			if err := cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true); err != nil {
				log.Error().Err(err).Msg("Failed to generate fish completion")
			}
		case "powershell":
			if err := cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout()); err != nil {
				log.Error().Err(err).Msg("Failed to generate powershell completion")
			}
		}
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [targets...]",
	Short: "Print the resolved dependency tree without building",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := remakefile.NewRunner(executor.Options{DryRun: true, Quiet: true}, configFile)

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		trees, err := runner.ResolveFromDirectory(cmd.Context(), cwd, args)
		if err != nil {
			return err
		}
		for _, tree := range trees {
			fmt.Print(style.RenderTree(tree))
		}
		return nil
	},
}

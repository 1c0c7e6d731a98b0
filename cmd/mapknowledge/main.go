package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/cmd/mapknowledge/commands"
	"github.com/teranos/mapknowledge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "mapknowledge",
	Short: "Resolve and cache neuron population knowledge",
	Long: `mapknowledge - Knowledge cache and resolution for anatomical connectivity.

Resolves what is known about an entity from a persistent knowledge store and
the configured providers, caching every answer under the current knowledge
source so later lookups are served locally.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (MAPKNOWLEDGE_* prefix)
3. Project config (./mapknowledge.toml, searched upwards)
4. User config (~/.mapknowledge/config.toml)
5. Default values

Examples:
  mapknowledge lookup ilxtr:neuron-type-keast-8   # Resolve an entity
  mapknowledge label UBERON:0001258               # Print an entity's label
  mapknowledge sources                            # List stored knowledge sources
  mapknowledge export --output sckan.json         # Export connectivity knowledge
  mapknowledge clean sckan-2024-09-21             # Purge a source's connectivity`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := commands.InitLogger(nil); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&commands.Verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Configuration file (default: project and user config)")
	rootCmd.PersistentFlags().BoolVar(&commands.JSONLog, "json-log", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.LookupCmd)
	rootCmd.AddCommand(commands.LabelCmd)
	rootCmd.AddCommand(commands.SourcesCmd)
	rootCmd.AddCommand(commands.CleanCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.RestoreCmd)
	rootCmd.AddCommand(commands.StatsCmd)
	rootCmd.AddCommand(commands.ModelsCmd)
	rootCmd.AddCommand(commands.PathsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range commands.Hints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/knowledge"
)

// LookupCmd resolves entities and prints their knowledge
var LookupCmd = &cobra.Command{
	Use:   "lookup <entity>...",
	Short: "Resolve the knowledge for entities",
	Long: `Resolve what is known about each entity and print it as JSON.

Knowledge comes from the store when it is already cached, otherwise from the
enabled providers, in which case it is stored under the current source.

Examples:
  mapknowledge lookup ilxtr:neuron-type-keast-8
  mapknowledge lookup UBERON:0001258 --source sckan-2024-03-04`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

// LabelCmd prints the label of entities
var LabelCmd = &cobra.Command{
	Use:   "label <entity>...",
	Short: "Print the label of entities",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLabel,
}

var (
	lookupSource string
	lookupStats  bool
)

func init() {
	LookupCmd.Flags().StringVar(&lookupSource, "source", "", "Read from a stored historical source without consulting providers")
	LookupCmd.Flags().BoolVar(&lookupStats, "stats", false, "Print resolver statistics after the lookup")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records := make([]*knowledge.Record, 0, len(args))
	for _, entity := range args {
		var rec *knowledge.Record
		if lookupSource != "" {
			rec, err = s.Resolver.EntityKnowledgeFrom(ctx, entity, lookupSource)
		} else {
			rec, err = s.Resolver.EntityKnowledge(ctx, entity)
		}
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	var output interface{} = records
	if len(records) == 1 {
		output = records[0]
	}
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge to JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if lookupStats {
		stats := s.Resolver.Stats()
		return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.ErrOrStderr()).WithData(pterm.TableData{
			{"Cache hits", "Store hits", "Provider calls", "Provider errors", "Writes"},
			{
				fmt.Sprint(stats.CacheHits),
				fmt.Sprint(stats.StoreHits),
				fmt.Sprint(stats.ProviderCalls),
				fmt.Sprint(stats.ProviderErrors),
				fmt.Sprint(stats.Writes),
			},
		}).Render()
	}
	return nil
}

func runLabel(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, entity := range args {
		label, err := s.Resolver.Label(ctx, entity)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), label)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entity, label)
		}
	}
	return nil
}

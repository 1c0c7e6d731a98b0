package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/maintenance"
)

// SourcesCmd lists the knowledge sources held by the store
var SourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List stored knowledge sources, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

// CleanCmd purges a source's connectivity knowledge
var CleanCmd = &cobra.Command{
	Use:   "clean <source>",
	Short: "Purge the connectivity knowledge of a source",
	Long: `Remove everything stored for a knowledge source together with the shared
connectivity knowledge it depends on, so it is resolved afresh on next use.

Example:
  mapknowledge clean sckan-2024-09-21`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func runSources(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := maintenance.Sources(ctx, st)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		pterm.Info.WithWriter(cmd.ErrOrStderr()).Printfln("No knowledge sources in %s", st.Path())
		return nil
	}
	for _, source := range sources {
		fmt.Fprintln(cmd.OutOrStdout(), source)
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := maintenance.Clean(ctx, st, args[0], logger.Logger)
	if err != nil {
		return err
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(pterm.TableData{
		{"Removed", "Rows"},
		{"connectivity records", fmt.Sprint(stats.Connectivity)},
		{"node records", fmt.Sprint(stats.Nodes)},
		{"source records", fmt.Sprint(stats.Records)},
		{"index rows", fmt.Sprint(stats.IndexRows)},
		{"models", fmt.Sprint(stats.Models)},
	}).Render()
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/mapknowledge/resolver"
)

// ModelsCmd lists the connectivity models
var ModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List connectivity models",
	Long: `List the connectivity models the graph provider knows, recording them
against the current source. Without a graph provider the models last
recorded in the store are listed.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

// PathsCmd lists the connectivity paths
var PathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List neuron population paths",
	Args:  cobra.NoArgs,
	RunE:  runPaths,
}

func runModels(cmd *cobra.Command, args []string) error {
	return listEntities(cmd, (*resolver.Resolver).ConnectivityModels)
}

func runPaths(cmd *cobra.Command, args []string) error {
	return listEntities(cmd, (*resolver.Resolver).ConnectivityPaths)
}

func listEntities(cmd *cobra.Command, list func(*resolver.Resolver, context.Context) ([]string, error)) error {
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

	entities, err := list(s.Resolver, ctx)
	if err != nil {
		return err
	}
	for _, entity := range entities {
		fmt.Fprintln(cmd.OutOrStdout(), entity)
	}
	return nil
}

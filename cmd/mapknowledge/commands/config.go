package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/mapknowledge/config"
	"github.com/teranos/mapknowledge/errors"
)

// ConfigCmd manages mapknowledge configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mapknowledge configuration",
	Long: `Display and manage mapknowledge configuration.

Examples:
  mapknowledge config show                 # Show the effective configuration
  mapknowledge config show --format json   # Show it as JSON
  mapknowledge config validate             # Check it describes a usable session
  mapknowledge config init                 # Write defaults to ~/.mapknowledge/config.toml
  mapknowledge config where                # Show which files are consulted`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file",
	Long: `Write the effective configuration as TOML, by default to the user config
file. An existing file is kept as <path>.back1. API keys are never written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Args:  cobra.NoArgs,
	RunE:  runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Providers.SciCrunch.APIKey != "" {
		cfg.Providers.SciCrunch.APIKey = "********"
	}
	out := cmd.OutOrStdout()

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# mapknowledge configuration\n%s", data)
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# mapknowledge configuration\n%s", data)
	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Configuration is valid")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := config.UserConfigPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no home directory: pass the config path explicitly")
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Wrote %s", path)
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	rows := pterm.TableData{{"Source", "Path", "Status"}}
	add := func(source, path string) {
		status := "missing"
		if path == "" {
			path, status = "-", "not found"
		} else if _, err := os.Stat(path); err == nil {
			status = "loaded"
		}
		rows = append(rows, []string{source, path, status})
	}

	if ConfigFile != "" {
		add("--config", ConfigFile)
	} else {
		add("user", config.UserConfigPath())
		add("project", config.FindProjectConfig())
	}
	rows = append(rows, []string{"environment", config.EnvPrefix + "_*", "-"})
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(rows).Render()
}

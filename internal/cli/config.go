package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/veridoc-io/reportlint/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage the reportlint configuration.

Config file location: ~/.reportlint/config.yaml

Subcommands:
  show    display the current configuration
  init    create a default config file
  set     change a configuration value
  path    print the config file path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Create a default config file at ~/.reportlint/config.yaml.

Fails if the file already exists; pass --force to overwrite it.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Long: `Change a configuration value.

Supported keys:
  default_provider    default review provider (qwen, openai, anthropic, gemini)
  review.temperature  sampling temperature (0.0-1.0)
  review.language     output language for findings
  review.author       comment author name

Examples:
  reportlint config set default_provider anthropic
  reportlint config set review.language en`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := config.NewLoader()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), loader.ConfigPath())
		return nil
	},
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("init config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if loader.Exists() {
		fmt.Fprintf(out, "Config file: %s\n\n", loader.ConfigPath())
	} else {
		fmt.Fprintf(out, "Config file: (using defaults)\n\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("render configuration: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "Environment:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range providers {
		value := maskAPIKey(config.GetEnvOrDefault(p.EnvKey, ""))
		if value == "" {
			value = "(unset)"
		}
		fmt.Fprintf(w, "  %s\t%s\n", p.EnvKey, value)
	}
	w.Flush()

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("init config loader: %w", err)
	}

	if loader.Exists() && !configForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", loader.ConfigPath())
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config file created: %s\n", loader.ConfigPath())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("init config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	switch key {
	case "default_provider":
		validProviders := []string{"qwen", "openai", "anthropic", "gemini"}
		if !contains(validProviders, value) {
			return fmt.Errorf("invalid provider: %s (supported: %s)", value, strings.Join(validProviders, ", "))
		}
		cfg.DefaultProvider = value

	case "review.temperature":
		var temp float64
		if _, err := fmt.Sscanf(value, "%f", &temp); err != nil {
			return fmt.Errorf("invalid temperature: %s", value)
		}
		if temp < 0 || temp > 1 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0: %f", temp)
		}
		cfg.Review.Temperature = temp

	case "review.language":
		if value == "" {
			return fmt.Errorf("language cannot be empty")
		}
		cfg.Review.Language = value

	case "review.author":
		if value == "" {
			return fmt.Errorf("author cannot be empty")
		}
		cfg.Review.Author = value

	default:
		return fmt.Errorf("unknown config key: %s (supported: default_provider, review.temperature, review.language, review.author)", key)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config updated: %s = %s\n", key, value)
	return nil
}

func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

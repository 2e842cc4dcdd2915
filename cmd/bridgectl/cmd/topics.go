package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nfrund/tradedesk/cmd/bridgectl/internal/display"
	_ "github.com/nfrund/tradedesk/internal/events"
	"github.com/nfrund/tradedesk/internal/topicmgr"
)

func newTopicsCmd() *cobra.Command {
	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "Explore the topic catalogue",
		Long: `The topics command lists, inspects and validates the topics the trading desk
knows about. The catalogue records which topics the backend pushes, which ones UI code
fires locally, and the payload each one carries.

Examples:
  # List all topics
  bridgectl topics list

  # List the update_data family only
  bridgectl topics list --family update_data

  # Show one topic as JSON
  bridgectl topics get order_update --format json

  # Check a name before using it
  bridgectl topics validate update_data:settings

  # Count topics per scope and family
  bridgectl topics stats`,
	}

	topicsCmd.AddCommand(
		newTopicsListCmd(),
		newTopicsGetCmd(),
		newTopicsValidateCmd(),
		newTopicsStatsCmd(),
	)
	return topicsCmd
}

// catalogue returns the manager holding every topic declared by the events package.
func catalogue() *topicmgr.Manager {
	return topicmgr.Default()
}

func newTopicsListCmd() *cobra.Command {
	var format, family, scope string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all known topics",
		Long: `List the topics in the catalogue, optionally filtered by family or scope.

Examples:
  bridgectl topics list                          # Table of every topic
  bridgectl topics list --format json           # Same as JSON
  bridgectl topics list --family update_data    # Only update_data and its kinds
  bridgectl topics list --scope local           # Only topics fired inside the process`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := listTopics(catalogue(), family, scope)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return display.TopicsJSON(out, defs)
			case "table":
				return display.TopicsTable(out, defs)
			default:
				return fmt.Errorf("unsupported output format %q, use table or json", format)
			}
		},
	}

	listCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	listCmd.Flags().StringVar(&family, "family", "", "Filter topics by family")
	listCmd.Flags().StringVarP(&scope, "scope", "s", "", "Filter topics by scope (backend, local)")
	return listCmd
}

// listTopics applies the list filters. An unknown family is an error naming the known ones.
func listTopics(manager *topicmgr.Manager, family, scope string) ([]topicmgr.Definition, error) {
	if family != "" && !slices.Contains(manager.Families(), family) {
		return nil, fmt.Errorf("unknown family %q, known families: %s",
			family, strings.Join(manager.Families(), ", "))
	}

	if scope == "" {
		if family != "" {
			return manager.ListByFamily(family), nil
		}
		return manager.List(), nil
	}

	s := topicmgr.Scope(strings.ToLower(scope))
	if !s.Valid() {
		return nil, fmt.Errorf("invalid scope %q, valid scopes: backend, local", scope)
	}
	defs := manager.ListByScope(s)
	if family != "" {
		defs = slices.DeleteFunc(defs, func(def topicmgr.Definition) bool { return def.Family != family })
	}
	return defs, nil
}

func newTopicsStatsCmd() *cobra.Command {
	var format string

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := catalogue().Stats()
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return display.StatsJSON(out, stats)
			case "table":
				return display.StatsTable(out, stats)
			default:
				return fmt.Errorf("unsupported output format %q, use table or json", format)
			}
		},
	}

	statsCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return statsCmd
}

func newTopicsGetCmd() *cobra.Command {
	var format string

	getCmd := &cobra.Command{
		Use:   "get <topic-name>",
		Short: "Show one topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := catalogue().Lookup(args[0])
			if err != nil {
				return fmt.Errorf("%w (use 'bridgectl topics list' to see all topics)", err)
			}
			return display.TopicDetails(cmd.OutOrStdout(), def, format)
		},
	}

	getCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return getCmd
}

func newTopicsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <topic-name>",
		Short: "Validate a topic name",
		Long: `Check that a topic name follows the naming convention: a lowercase identifier,
optionally followed by one ":" and a member name (update_data:settings).

A valid name that is not in the catalogue is reported but is not an error; the bridge
dispatches any topic.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			manager := catalogue()
			out := cmd.OutOrStdout()

			if err := manager.ValidateTopicName(name); err != nil {
				fmt.Fprintf(out, "❌ Topic name validation failed: %v\n", errors.Unwrap(err))
				return err
			}

			def, found := manager.Get(name)
			if !found {
				fmt.Fprintf(out, "✅ Topic name '%s' is valid (not in the catalogue)\n", name)
				return nil
			}

			fmt.Fprintf(out, "✅ Topic '%s' is valid\n", def.Name)
			fmt.Fprintf(out, "   Family: %s\n", def.Family)
			fmt.Fprintf(out, "   Scope: %s\n", def.Scope)
			fmt.Fprintf(out, "   Description: %s\n", def.Description)
			return nil
		},
	}
}

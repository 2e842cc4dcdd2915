package display

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nfrund/tradedesk/internal/topicmgr"
)

// TopicDisplay represents a topic for display purposes
type TopicDisplay struct {
	Name        string `json:"name"`
	Family      string `json:"family"`
	Scope       string `json:"scope"`
	Description string `json:"description"`
	Payload     string `json:"payload,omitempty"`
	Example     string `json:"example,omitempty"`
}

func toDisplay(def topicmgr.Definition) TopicDisplay {
	return TopicDisplay{
		Name:        def.Name,
		Family:      def.Family,
		Scope:       string(def.Scope),
		Description: def.Description,
		Payload:     def.Payload,
		Example:     def.Example,
	}
}

// FamilyTitle turns a family name into a heading, e.g. "update_data" into "Update Data".
func FamilyTitle(family string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(family, "_", " "))
}

// TopicsTable writes definitions as a table grouped by family
func TopicsTable(w io.Writer, defs []topicmgr.Definition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "FAMILY\tNAME\tSCOPE\tPAYLOAD\tDESCRIPTION")
	fmt.Fprintln(tw, "------\t----\t-----\t-------\t-----------")

	if len(defs) == 0 {
		fmt.Fprintln(tw, "No topics found")
	}
	previous := ""
	for _, def := range defs {
		family := ""
		if def.Family != previous {
			family = FamilyTitle(def.Family)
			previous = def.Family
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			family,
			def.Name,
			def.Scope,
			orDash(def.Payload),
			truncateString(def.Description, 50))
	}
	return tw.Flush()
}

// TopicsJSON writes definitions as a JSON document
func TopicsJSON(w io.Writer, defs []topicmgr.Definition) error {
	displays := make([]TopicDisplay, len(defs))
	for i, def := range defs {
		displays[i] = toDisplay(def)
	}

	output := struct {
		Topics []TopicDisplay `json:"topics"`
		Count  int            `json:"count"`
	}{
		Topics: displays,
		Count:  len(displays),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// TopicDetails writes one definition in the requested format
func TopicDetails(w io.Writer, def topicmgr.Definition, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(toDisplay(def))
	}

	fmt.Fprintf(w, "Name:        %s\n", def.Name)
	fmt.Fprintf(w, "Family:      %s\n", FamilyTitle(def.Family))
	fmt.Fprintf(w, "Scope:       %s\n", def.Scope)
	fmt.Fprintf(w, "Payload:     %s\n", orDash(def.Payload))
	fmt.Fprintf(w, "Description: %s\n", def.Description)
	if def.Example != "" {
		fmt.Fprintf(w, "Example:     %s\n", def.Example)
	}
	return nil
}

// StatsTable writes catalogue statistics with one row per family
func StatsTable(w io.Writer, stats topicmgr.RegistryStats) error {
	fmt.Fprintf(w, "Topics:  %d (%d backend, %d local)\n\n",
		stats.TotalTopics, stats.BackendTopics, stats.LocalTopics)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tTOPICS")
	fmt.Fprintln(tw, "------\t------")
	for _, family := range slices.Sorted(maps.Keys(stats.FamilyBreakdown)) {
		fmt.Fprintf(tw, "%s\t%d\n", FamilyTitle(family), stats.FamilyBreakdown[family])
	}
	return tw.Flush()
}

// StatsJSON writes catalogue statistics as a JSON document
func StatsJSON(w io.Writer, stats topicmgr.RegistryStats) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stats)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}

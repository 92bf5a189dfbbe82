package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var calendarsCmd = &cobra.Command{
	Use:     "calendars",
	Aliases: []string{"cal", "cals"},
	Short:   "List available calendars",
	Long:    `List all calendars you have access to with the google or outlook store.`,
	RunE:    runCalendars,
}

func init() {
	rootCmd.AddCommand(calendarsCmd)
}

func runCalendars(cmd *cobra.Command, args []string) error {
	if adapter == nil {
		return fmt.Errorf("the %s store has a single calendar; use --store google|outlook to list calendars", source)
	}
	calendars := adapter.Calendars()

	ids := make([]string, 0, len(calendars))
	for id := range calendars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return calendars[ids[i]] < calendars[ids[j]] })

	fmt.Println("📅 Available calendars:")
	fmt.Println("─────────────────────────────────────────────────")

	for _, id := range ids {
		fmt.Printf("\n  • %s\n", calendars[id])
		fmt.Printf("    ID: %s\n", id)
	}

	fmt.Println()
	fmt.Printf("Total: %d calendars\n", len(calendars))
	fmt.Println("\nTip: Use 'gridcal --calendar <ID>' to show and create events in that calendar")

	return nil
}

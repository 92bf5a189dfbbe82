package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/gridcal/internal/core"
	"github.com/theakshaypant/gridcal/internal/util"
)

const rule = "─────────────────────────────────────────────────"

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next upcoming event",
	Long: `Show detailed information about the next upcoming event on your calendar.

Completed events are skipped unless --completed is given.`,
	RunE: runNext,
}

var agendaCmd = &cobra.Command{
	Use:     "agenda",
	Aliases: []string{"ls"},
	Short:   "Print the events of the coming days",
	RunE:    runAgenda,
}

func init() {
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(agendaCmd)

	nextCmd.Flags().IntP("days", "d", 7, "How many days ahead to look")
	nextCmd.Flags().Bool("completed", false, "Include completed events")
	agendaCmd.Flags().IntP("days", "d", 7, "Number of days to list")
}

// fetchFrom lists the events of the given number of days starting at the
// day of --date.
func fetchFrom(ctx context.Context, cmd *cobra.Command, now time.Time) ([]core.Event, time.Time, time.Time, error) {
	start, err := parseDate(viper.GetString("date"), now)
	if err != nil {
		return nil, start, start, err
	}
	days, _ := cmd.Flags().GetInt("days")
	if days < 1 {
		days = 1
	}
	end := start.AddDate(0, 0, days)

	events, err := store.ListRange(ctx, start, end)
	if err != nil {
		return nil, start, end, fmt.Errorf("failed to fetch events: %w", err)
	}
	core.SortByStart(events)
	return events, start, end, nil
}

func runNext(cmd *cobra.Command, args []string) error {
	now := time.Now()
	events, _, _, err := fetchFrom(cmd.Context(), cmd, now)
	if err != nil {
		return err
	}
	withCompleted, _ := cmd.Flags().GetBool("completed")

	// Upcoming or running events
	var eligible []core.Event
	for _, e := range events {
		if e.Completed && !withCompleted {
			continue
		}
		if e.Start.After(now) || e.InProgress(now) {
			eligible = append(eligible, e)
		}
	}

	if len(eligible) == 0 {
		fmt.Println("No upcoming events found.")
		return nil
	}

	// Events sharing the first start time are a conflict
	nextStart := eligible[0].Start
	var concurrent []core.Event
	for _, e := range eligible {
		if !e.Start.Equal(nextStart) {
			break
		}
		concurrent = append(concurrent, e)
	}

	fmt.Println(rule)
	if len(concurrent) > 1 {
		fmt.Printf("  ⚠️  CONFLICT: %d EVENTS AT THE SAME TIME\n", len(concurrent))
	} else {
		fmt.Println("  NEXT EVENT")
	}
	fmt.Println(rule)

	fmt.Println()
	first := concurrent[0]
	if first.InProgress(now) {
		fmt.Printf("  🟢 IN PROGRESS - %s remaining\n", formatDurationCompact(first.End.Sub(now)))
	} else {
		fmt.Printf("  ⏳ STARTS IN: %s\n", formatCountdown(first.Start.Sub(now)))
	}

	for i, e := range concurrent {
		if len(concurrent) > 1 {
			fmt.Printf("\n  EVENT %d of %d\n", i+1, len(concurrent))
			fmt.Println("  ─────────────────────────────────────────────")
		} else {
			fmt.Println()
		}
		displayEvent(e, true, now)
	}

	fmt.Println()
	fmt.Println(rule)
	return nil
}

func runAgenda(cmd *cobra.Command, args []string) error {
	now := time.Now()
	events, start, end, err := fetchFrom(cmd.Context(), cmd, now)
	if err != nil {
		return err
	}

	fmt.Printf("📅 Events from %s to %s:\n", start.Format("Jan 2"), end.AddDate(0, 0, -1).Format("Jan 2"))
	fmt.Println(rule)

	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	for _, e := range events {
		fmt.Println()
		displayEvent(e, false, now)
	}

	fmt.Println(rule)
	fmt.Printf("Total: %d events\n", len(events))
	return nil
}

// displayEvent prints an event; detailed shows the whole description and
// the event id.
func displayEvent(e core.Event, detailed bool, now time.Time) {
	const indent = "  "

	title := e.Title
	if title == "" {
		title = "(No title)"
	}
	if e.Completed {
		title = "✓ " + title
	}
	fmt.Printf("%s%s\n", indent, title)
	fmt.Printf("%s🕐 When:        %s\n", indent, formatEventTime(e.Start, e.End))
	fmt.Printf("%s⏱️  Duration:    %s\n", indent, formatDurationCompact(e.Duration()))

	if e.Description != "" {
		if detailed {
			fmt.Printf("%s📝 Description:\n", indent)
			for _, line := range wrapText(util.HTMLToText(e.Description, 60), 60) {
				fmt.Printf("%s   %s\n", indent, line)
			}
		} else {
			first, _, _ := strings.Cut(util.PlainText(e.Description), "\n")
			fmt.Printf("%s📝 Description: %s\n", indent, util.TruncateText(first, 80))
		}
	}

	if !detailed && e.InProgress(now) {
		fmt.Printf("%s🟢 IN PROGRESS (%s remaining)\n", indent, formatDurationCompact(e.End.Sub(now)))
	}

	if detailed {
		fmt.Printf("%s🆔 ID:          %s\n", indent, e.ID)
	}
}

// wrapText wraps text to the given width
func wrapText(s string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = word
			} else {
				line += " " + word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// formatDurationCompact formats a duration in a compact way
func formatDurationCompact(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		return "NOW"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}

	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, ", ")
}

func formatEventTime(start, end time.Time) string {
	localStart := start.Local()
	localEnd := end.Local()

	if localStart.YearDay() == localEnd.YearDay() && localStart.Year() == localEnd.Year() {
		return fmt.Sprintf("%s, %s - %s", localStart.Format("Mon, Jan 2"), localStart.Format("3:04 PM"), localEnd.Format("3:04 PM"))
	}
	return fmt.Sprintf("%s - %s", localStart.Format("Mon, Jan 2 3:04 PM"), localEnd.Format("Mon, Jan 2 3:04 PM"))
}

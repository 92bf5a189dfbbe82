package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theakshaypant/gridcal/internal/grid"
	"github.com/theakshaypant/gridcal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the interactive calendar (default)",
	Long: `Launch the interactive calendar grid.

Mouse: click an event for details, drag it to move, drag its bottom edge to
resize, press on an empty slot to create an event, right-click for the quick
menu. Press ? for the keyboard shortcuts.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	variant, ok := grid.ParseVariant(viper.GetString("view"))
	if !ok {
		return fmt.Errorf("unknown view: %s (supported: focus, week, month)", viper.GetString("view"))
	}
	ref, err := parseDate(viper.GetString("date"), time.Now())
	if err != nil {
		return err
	}

	m := tui.NewModel(store, tui.Options{
		Variant:    variant,
		Reference:  ref,
		Logger:     logger,
		TimeZone:   viper.GetString("time_zone"),
		CalendarID: viper.GetString("calendar_id"),
		Source:     source,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"taskflow/internal/models"
	"taskflow/internal/server"
	"taskflow/internal/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	todayStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Print task statistics and the due-today and overdue lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		// the dashboard only reads local stores
		cfg.Redis.Enabled = false
		app, err := server.NewApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Fprintln(cmd.OutOrStdout(), renderDashboard(app.DashboardService.Get(cmd.Context())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func renderDashboard(d services.Dashboard) string {
	s := d.Stats
	stats := strings.Join([]string{
		headerStyle.Render("Statistics"),
		fmt.Sprintf("Total        %d", s.Total),
		fmt.Sprintf("Completed    %d (%d%%)", s.Completed, s.CompletionRate),
		fmt.Sprintf("In progress  %d", s.InProgress),
		fmt.Sprintf("Pending      %d", s.Pending),
		fmt.Sprintf("Overdue      %d", s.Overdue),
	}, "\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(stats),
		panelStyle.Render(taskList("Due today", d.DueToday, todayStyle)),
		panelStyle.Render(taskList("Overdue", d.Overdue, overdueStyle)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("TaskFlow"),
		panels,
		mutedStyle.Render("generated "+d.GeneratedAt.Format("2006-01-02 15:04 MST")),
	)
}

func taskList(title string, tasks []models.Task, style lipgloss.Style) string {
	lines := []string{headerStyle.Render(title)}
	if len(tasks) == 0 {
		lines = append(lines, mutedStyle.Render("nothing here"))
	}
	for _, t := range tasks {
		lines = append(lines, style.Render(t.DueDate.Format("Jan 02 15:04"))+"  "+t.Title)
	}
	return strings.Join(lines, "\n")
}

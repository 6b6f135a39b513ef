package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderSwatch renders a single colored block
func RenderSwatch(color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Render("■")
}

// RenderValue renders a number in the given color
func RenderValue(color lipgloss.Color, v int) string {
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%3d", v))
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color lipgloss.Color, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderSwatch(color), name, desc)
}

// RenderSections formats labelled values in aligned groups
func RenderSections(title lipgloss.Style, sections []Section) string {
	var lines []string
	for i, sec := range sections {
		if i > 0 {
			lines = append(lines, "")
		}
		if sec.Title != "" {
			lines = append(lines, title.Render(sec.Title))
		}
		for _, r := range sec.Rows {
			lines = append(lines, fmt.Sprintf("  %-18s %s", r.Label, r.Value))
		}
	}
	return strings.Join(lines, "\n")
}

// Section groups related rows
type Section struct {
	Title string
	Rows  []Row
}

// Row is a single label and its rendered value
type Row struct {
	Label string
	Value string
}

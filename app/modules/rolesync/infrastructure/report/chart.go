package rolesyncreport

import (
	"bytes"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// maxChartRoles caps the bars drawn; the sheet still lists every change.
const maxChartRoles = 12

var (
	addedColor   = drawing.ColorFromHex("2e7d32")
	removedColor = drawing.ColorFromHex("c62828")
)

// RenderRoleChart draws a stacked bar per role splitting adds from removals.
func RenderRoleChart(counts []RoleCount) ([]byte, error) {
	if len(counts) > maxChartRoles {
		counts = counts[:maxChartRoles]
	}

	bars := make([]chart.StackedBar, 0, len(counts))
	for _, c := range counts {
		var values []chart.Value
		if c.Added > 0 {
			values = append(values, chart.Value{
				Label: "added",
				Value: float64(c.Added),
				Style: chart.Style{FillColor: addedColor, StrokeColor: addedColor},
			})
		}
		if c.Removed > 0 {
			values = append(values, chart.Value{
				Label: "removed",
				Value: float64(c.Removed),
				Style: chart.Style{FillColor: removedColor, StrokeColor: removedColor},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: c.Role, Values: values})
	}

	graph := chart.StackedBarChart{
		Title:      "Role changes",
		Width:      120 + 70*len(bars),
		Height:     400,
		BarSpacing: 20,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

package timeline

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daylog/internal/constants"
)

const (
	svgHeight    = 60
	svgBarTop    = 10
	svgBarHeight = 24
	svgMargin    = 20
)

var svgFill = map[constants.Category]string{
	constants.CategoryWork:  "#4f8a5b",
	constants.CategoryBreak: "#d9a441",
}

// RenderSVG draws the segments as a horizontal strip with an hour ruler.
func RenderSVG(segments []Segment, cfg Config) string {
	total := cfg.TotalWidth()
	width := int(math.Ceil(total)) + 2*svgMargin

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, svgHeight))

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%.2f" height="%d" fill="#f0f0f0"/>`+"\n",
		svgMargin, svgBarTop, total, svgBarHeight))

	for h := cfg.StartHour; h <= cfg.EndHour; h++ {
		x := float64(svgMargin) + float64(h-cfg.StartHour)*cfg.PixelsPerHour
		svg.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%d" x2="%.2f" y2="%d" stroke="#999999" stroke-width="1"/>`+"\n",
			x, svgBarTop+svgBarHeight, x, svgBarTop+svgBarHeight+4))
		svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%d" font-size="10" text-anchor="middle" fill="#333333">%02d</text>`+"\n",
			x, svgHeight-8, h))
	}

	for _, seg := range segments {
		fill, ok := svgFill[seg.Category]
		if !ok {
			fill = svgFill[constants.CategoryWork]
		}
		opacity := "1"
		if seg.Open {
			opacity = "0.6"
		}
		title := fmt.Sprintf("%s-%s", seg.Start.Format(constants.TimeFormat), seg.End.Format(constants.TimeFormat))
		if seg.Label != "" {
			title += " " + seg.Label
		}
		svg.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%d" width="%.2f" height="%d" fill="%s" fill-opacity="%s"><title>%s</title></rect>`+"\n",
			float64(svgMargin)+seg.Left, svgBarTop, seg.Width, svgBarHeight, fill, opacity, html.EscapeString(title)))
	}

	svg.WriteString("</svg>\n")
	return svg.String()
}

var (
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	barWork  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4f8a5b"))
	barBreak = lipgloss.NewStyle().Foreground(lipgloss.Color("#d9a441"))
)

// BarCells maps segments onto a row of columns terminal cells. A cell shows
// the last segment that covers it, or "" when none does.
func BarCells(segments []Segment, cfg Config, columns int) []constants.Category {
	cells := make([]constants.Category, columns)
	total := cfg.TotalWidth()
	if columns <= 0 || total <= 0 {
		return cells
	}
	cols := float64(columns)
	for _, seg := range segments {
		from := int(math.Floor(seg.Left * cols / total))
		to := int(math.Ceil((seg.Left + seg.Width) * cols / total))
		if to <= from {
			to = from + 1
		}
		for i := from; i < to && i < columns; i++ {
			if i >= 0 {
				cells[i] = seg.Category
			}
		}
	}
	return cells
}

// RenderBar draws the segments as a single line of coloured blocks
func RenderBar(segments []Segment, cfg Config, columns int) string {
	var b strings.Builder
	for _, c := range BarCells(segments, cfg, columns) {
		switch c {
		case constants.CategoryBreak:
			b.WriteString(barBreak.Render("▒"))
		case "":
			b.WriteString(barEmpty.Render("·"))
		default:
			b.WriteString(barWork.Render("█"))
		}
	}
	return b.String()
}

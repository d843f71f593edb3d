package ui

import (
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// renderStage draws the current panel inside the panel area. The frame is
// sized from the box the layout engine assigned, multiplied by the displayed
// scale, and centered the way the layout transform centers it.
func (r *Root) renderStage(areaW, areaH int) string {
	if areaW <= 0 || areaH <= 0 {
		return ""
	}
	snap, ok := r.surface.Current()
	if !ok {
		msg := r.theme.Muted.Render("No slides matched this deck.")
		return lipgloss.Place(areaW, areaH, lipgloss.Center, lipgloss.Center, msg)
	}

	scale := r.displayScale(snap)
	outerW, contentH := areaW-2, areaH-panelChromeRows
	if snap.Box.W > 0 {
		outerW = int(math.Round(snap.Box.W*scale)) + 2
		contentH = int(math.Round(snap.Box.H * scale))
	}
	outerW = clampInt(outerW, 8, areaW)
	contentH = clampInt(contentH, 1, max(1, areaH-panelChromeRows))
	innerW := outerW - 2

	var lines []string
	if snap.View.Terminal != nil {
		lines = r.terminalLines(snap.View, innerW, contentH)
	} else if snap.View.Art != "" {
		lines = r.artLines(snap.View, innerW, contentH)
	} else {
		lines = r.bodyLines(snap.View.BodyMD, innerW, contentH)
	}
	title := snap.View.Title
	if title == "" {
		title = snap.View.ID
	}
	panel := r.drawPanel(title, lines, outerW, contentH+panelChromeRows, snap.Current)
	return lipgloss.Place(areaW, areaH, lipgloss.Center, lipgloss.Center, panel)
}

func (r *Root) bodyLines(md string, width, rows int) []string {
	md = strings.TrimSpace(md)
	if md == "" {
		return nil
	}
	out := md
	if renderer := r.markdownRenderer(width); renderer != nil {
		if rendered, err := renderer.Render(md); err == nil {
			out = rendered
		} else {
			r.logger.Debug("ui.markdown_failed", "err", err)
		}
	}
	lines := strings.Split(strings.Trim(out, "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[0])) == "" {
		lines = lines[1:]
	}
	return clipLines(lines, rows)
}

// artLines centers an art block in the content box. Art is never reflowed;
// rows and columns that do not fit are cut.
func (r *Root) artLines(v PanelView, width, rows int) []string {
	art := strings.TrimRight(v.Art, "\n")
	artRows := rows
	if v.Caption != "" && rows > 1 {
		artRows = rows - 1
	}
	src := strings.Split(art, "\n")
	if len(src) > artRows {
		src = src[:artRows]
	}
	for i, line := range src {
		src[i] = ansi.Truncate(line, width, "")
	}
	block := lipgloss.Place(width, artRows, lipgloss.Center, lipgloss.Center, strings.Join(src, "\n"))
	lines := strings.Split(block, "\n")
	if v.Caption != "" && rows > 1 {
		caption := ansi.Truncate(v.Caption, width, "…")
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Center, r.theme.Caption.Render(caption)))
	}
	return lines
}

// terminalLines sizes the embedded terminal to the content box and draws its
// screen, keeping the last row for the caption when there is one.
func (r *Root) terminalLines(v PanelView, width, rows int) []string {
	termRows := rows
	if v.Caption != "" && rows > 1 {
		termRows = rows - 1
	}
	if err := v.Terminal.Resize(width, termRows); err != nil {
		r.logger.Debug("ui.terminal_resize", "panel", v.ID, "err", err)
	}
	lines := v.Terminal.Lines(width, termRows)
	if v.Caption != "" && rows > 1 {
		caption := ansi.Truncate(v.Caption, width, "…")
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Center, r.theme.Caption.Render(caption)))
	}
	return lines
}

func (r *Root) markdownRenderer(width int) *glamour.TermRenderer {
	width = max(8, width)
	if tr, ok := r.markdown[width]; ok {
		return tr
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.logger.Warn("ui.markdown_renderer", "width", width, "err", err)
		tr = nil
	}
	r.markdown[width] = tr
	return tr
}

func (r *Root) drawPanel(title string, lines []string, width, height int, current bool) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if current && !r.ascii {
		h, v, tl, tr, bl, br = "━", "┃", "┏", "┓", "┗", "┛"
	}
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}
	border := r.theme.PanelBorder
	if current {
		border = r.theme.Current
	}

	top := border.Render(tl + strings.Repeat(h, innerW) + tr)
	if t := strings.TrimSpace(title); t != "" && innerW > 4 {
		t = ansi.Truncate(t, innerW-4, "…")
		fill := innerW - ansi.StringWidth(t) - 3
		top = border.Render(tl+h+" ") + r.theme.PanelTitle.Render(t) + border.Render(" "+strings.Repeat(h, max(0, fill))+tr)
	}

	out := make([]string, 0, height)
	out = append(out, top)
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, border.Render(v)+r.theme.PanelBody.Render(padANSI(line, innerW))+border.Render(v))
	}
	out = append(out, border.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

// stripText renders one marker per panel: the current panel highlighted,
// panels before it as visited and the rest as upcoming.
func (r *Root) stripText(width int) string {
	snaps := r.surface.Snapshot()
	if len(snaps) == 0 || width <= 0 {
		return ""
	}
	cur, past, next := "●", "•", "·"
	if r.ascii {
		cur, past, next = "*", "o", "."
	}
	currentPos := 0
	for _, s := range snaps {
		if s.Current {
			currentPos = s.Position
		}
	}
	if len(snaps)*2 > width {
		return ""
	}
	var b strings.Builder
	for i, s := range snaps {
		if i > 0 {
			b.WriteString(" ")
		}
		switch {
		case s.Current:
			b.WriteString(r.theme.Current.Render(cur))
		case s.Position < currentPos:
			b.WriteString(r.theme.Past.Render(past))
		default:
			b.WriteString(r.theme.Upcoming.Render(next))
		}
	}
	return b.String()
}

func clipLines(lines []string, rows int) []string {
	if rows <= 0 {
		return nil
	}
	if len(lines) <= rows {
		return lines
	}
	out := append([]string(nil), lines[:rows]...)
	out[rows-1] = "…"
	return out
}

// padANSI cuts or pads s to exactly width cells, keeping escape sequences.
func padANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

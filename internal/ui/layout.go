package ui

// Frame rows around the panel area: header above; status line and help
// below in full mode, status only when compact.
const (
	headerRows        = 1
	footerRowsFull    = 2
	footerRowsCompact = 1

	minCols = 40
	minRows = 12
)

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < minCols || rows < minRows {
		return LayoutTooSmall
	}
	if rows < 20 || cols < 72 {
		return LayoutCompact
	}
	return LayoutFull
}

// PanelArea returns the cells left for panels once the frame (and the notes
// drawer, when open) has been taken out.
func PanelArea(cols, rows int, mode LayoutMode, notesRows int) (int, int) {
	if mode == LayoutTooSmall {
		return 0, 0
	}
	footer := footerRowsFull
	if mode == LayoutCompact {
		footer = footerRowsCompact
	}
	h := rows - headerRows - footer - max(0, notesRows)
	return max(0, cols), max(0, h)
}

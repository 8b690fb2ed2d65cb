package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"filecensus/internal/inventory"
	"filecensus/internal/session"
)

var _ tview.TableContent = (*matchRows)(nil)

const (
	sizeColIndex = 0
	pathColIndex = 1
)

// matchRows exposes a session.View to a tview.Table. Row 0 is the header.
type matchRows struct {
	tview.TableContentReadOnly
	view session.View
}

func (r *matchRows) GetRowCount() int {
	return len(r.view.Matches) + 1
}

func (r *matchRows) GetColumnCount() int {
	return 2
}

func (r *matchRows) GetCell(row, col int) *tview.TableCell {
	if row == 0 {
		return r.headerCell(col)
	}
	i := row - 1
	if i >= len(r.view.Matches) {
		return nil
	}
	match := r.view.Matches[i]
	switch col {
	case sizeColIndex:
		return tview.NewTableCell(match.HumanSize).
			SetAlign(tview.AlignRight).
			SetTextColor(tcell.ColorLightSkyBlue).
			SetReference(match)
	case pathColIndex:
		return tview.NewTableCell(tview.Escape(match.Path)).
			SetExpansion(1).
			SetReference(match)
	default:
		return nil
	}
}

func (r *matchRows) headerCell(col int) *tview.TableCell {
	var text string
	switch col {
	case sizeColIndex:
		text = "Size" + sortArrow(r.view.SortState, inventory.SortSizeAsc, inventory.SortSizeDesc)
	case pathColIndex:
		text = "Path" + sortArrow(r.view.SortState, inventory.SortNameAsc, inventory.SortNameDesc)
	default:
		return nil
	}
	return tview.NewTableCell(text).
		SetSelectable(false).
		SetTextColor(tcell.ColorYellow).
		SetAttributes(tcell.AttrBold)
}

func sortArrow(state, asc, desc inventory.SortState) string {
	switch state {
	case asc:
		return " ▲"
	case desc:
		return " ▼"
	default:
		return ""
	}
}

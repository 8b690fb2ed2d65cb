// Package tui is the interactive terminal front end: a search bar, the
// matching files and sort toggles on Ctrl-S (size) and Ctrl-N (name).
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"filecensus/internal/inventory"
	"filecensus/internal/session"
	"filecensus/internal/sorting"
)

// App is the terminal UI bound to one session.
type App struct {
	app     *tview.Application
	session *session.Session
	ctx     context.Context

	header *tview.TextView
	search *tview.InputField
	table  *tview.Table
	rows   *matchRows
	bottom *tview.TextView
	layout *tview.Flex

	// queueUpdate runs f on the UI goroutine.
	queueUpdate func(f func())
}

// New builds the UI on app for sess. ctx bounds rescans started from the UI.
func New(ctx context.Context, app *tview.Application, sess *session.Session) *App {
	a := &App{
		app:     app,
		session: sess,
		ctx:     ctx,
		rows:    &matchRows{},
	}
	a.queueUpdate = func(f func()) {
		app.QueueUpdateDraw(f)
	}

	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(tcell.ColorSlateGray)

	a.search = tview.NewInputField().
		SetLabel("Search: ").
		SetPlaceholder("^prefix  suffix$  %any case%  !exclude  basename: name  >=1.5 MB  a && b").
		SetFieldWidth(0)
	a.search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.runSearch(a.search.GetText())
		}
	})

	a.table = tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false).
		SetContent(a.rows)
	a.table.SetBorder(true)

	a.bottom = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(tcell.ColorSlateGray)

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.search, 1, 0, true).
		AddItem(a.table, 0, 1, false).
		AddItem(a.bottom, 1, 0, false)

	app.SetRoot(a.layout, true).
		SetFocus(a.search).
		SetInputCapture(a.inputCapture)

	a.refresh(sess.View(), "")
	return a
}

// Run starts the event loop and blocks until the user quits.
func (a *App) Run() error {
	return a.app.Run()
}

func (a *App) inputCapture(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlS:
		a.sortBy(sorting.FieldSize)
		return nil
	case tcell.KeyCtrlN:
		a.sortBy(sorting.FieldName)
		return nil
	case tcell.KeyCtrlR:
		a.rescan()
		return nil
	case tcell.KeyTab:
		if a.search.HasFocus() {
			a.app.SetFocus(a.table)
		} else {
			a.app.SetFocus(a.search)
		}
		return nil
	case tcell.KeyEscape:
		a.app.Stop()
		return nil
	default:
		return event
	}
}

func (a *App) runSearch(text string) {
	view, err := a.session.Search(text)
	if err != nil {
		a.setMessage(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
		return
	}
	a.refresh(view, "")
}

func (a *App) sortBy(field sorting.Field) {
	a.refresh(a.session.SortBy(field), "")
}

func (a *App) rescan() {
	root := a.session.Status().Root
	if root == "" || root == inventory.NoLocation || root == inventory.ImportedLocation {
		a.setMessage("[yellow]nothing to rescan[-]")
		return
	}
	a.setMessage(fmt.Sprintf("scanning %s…", tview.Escape(root)))
	go func() {
		err := a.session.Gather(a.ctx, root)
		a.queueUpdate(func() {
			if err != nil {
				a.setMessage(fmt.Sprintf("[red]%s[-]", tview.Escape(err.Error())))
				return
			}
			a.search.SetText("")
			a.refresh(a.session.View(), "")
		})
	}()
}

func (a *App) refresh(view session.View, message string) {
	a.rows.view = view
	a.table.Select(1, 0)
	a.table.ScrollToBeginning()
	a.header.SetText(headerText(a.session.Inventory().Metadata()))
	a.table.SetTitle(" " + searchInfo(view) + " ")
	a.setMessage(message)
}

func (a *App) setMessage(message string) {
	var sb strings.Builder
	sb.WriteString("[DarkGray]Enter[-] search  [DarkGray]Ctrl-S[-] size  [DarkGray]Ctrl-N[-] name  ")
	sb.WriteString("[DarkGray]Ctrl-R[-] rescan  [DarkGray]Tab[-] focus  [DarkGray]Esc[-] quit")
	if message != "" {
		sb.WriteString("  | ")
		sb.WriteString(message)
	}
	a.bottom.SetText(sb.String())
}

func headerText(meta inventory.Metadata) string {
	return fmt.Sprintf("[white]%s[-]  %s  %s  %s files  %s",
		tview.Escape(meta.RootLocation),
		meta.ScanDate,
		meta.ScanDuration,
		humanize.Comma(int64(meta.TotalFiles)),
		meta.TotalSize(),
	)
}

// searchInfo is shown only when the matches are a subset of the inventory.
func searchInfo(view session.View) string {
	if !view.Filtered {
		return "All files"
	}
	return fmt.Sprintf("%s files (%s)", humanize.Comma(int64(len(view.Matches))), view.MatchesSize)
}

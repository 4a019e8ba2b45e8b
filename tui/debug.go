package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// DebugTab displays debug log messages.
type DebugTab struct {
	app       *App
	flex      *tview.Flex
	logView   *tview.TextView
	statusBar *tview.TextView
	buttonBar *tview.TextView
	lastCount int
}

// NewDebugTab creates a new debug tab.
func NewDebugTab(app *App) *DebugTab {
	t := &DebugTab{app: app}
	t.setupUI()
	return t
}

func (t *DebugTab) setupUI() {
	t.buttonBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.updateButtonBar()

	t.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetTextColor(CurrentTheme.Text)
	t.logView.SetBorder(true).SetTitle(" Debug Log ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)

	t.logView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'c', 'C':
			t.Clear()
			return nil
		case 'G':
			t.logView.ScrollToEnd()
			return nil
		case 'g':
			t.logView.ScrollToBeginning()
			return nil
		}
		return event
	})

	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.buttonBar, 1, 0, false).
		AddItem(t.logView, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)
}

func (t *DebugTab) buildText(messages []LogMessage) string {
	th := CurrentTheme
	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(th.TagTextDim)
		sb.WriteString(msg.Timestamp.Format("15:04:05.000"))
		sb.WriteString(th.TagReset)
		sb.WriteString(" ")
		sb.WriteString(tview.Escape(msg.Message))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Clear clears the debug log.
func (t *DebugTab) Clear() {
	if t.app.store != nil {
		t.app.store.Clear()
	}
	t.lastCount = 0
	t.logView.SetText("")
	t.updateStatusBar(0)
}

// GetPrimitive returns the main primitive for this tab.
func (t *DebugTab) GetPrimitive() tview.Primitive {
	return t.flex
}

// GetFocusable returns the element that should receive focus.
func (t *DebugTab) GetFocusable() tview.Primitive {
	return t.logView
}

// Refresh redraws the log. Must be called on the UI goroutine.
func (t *DebugTab) Refresh() {
	if t.app.store == nil {
		t.updateStatusBar(0)
		return
	}
	messages := t.app.store.GetMessages()
	if len(messages) > 0 && len(messages) != t.lastCount {
		t.logView.SetText(t.buildText(messages))
		t.logView.ScrollToEnd()
	}
	t.lastCount = len(messages)
	t.updateStatusBar(len(messages))
}

func (t *DebugTab) updateStatusBar(count int) {
	max := 0
	if t.app.store != nil {
		max = t.app.store.MaxLines()
	}
	t.statusBar.SetText(fmt.Sprintf(" %d log lines (max %d)", count, max))
}

func (t *DebugTab) updateButtonBar() {
	th := CurrentTheme
	buttonText := " " + th.TagHotkey + "c" + th.TagActionText + "lear  " +
		th.TagHotkey + "g" + th.TagActionText + " top  " +
		th.TagHotkey + "G" + th.TagActionText + " bottom  " +
		th.TagActionText + "│  " +
		th.TagHotkey + "?" + th.TagActionText + " help  " +
		th.TagHotkey + "Shift+Tab" + th.TagActionText + " next tab " + th.TagReset
	t.buttonBar.SetText(buttonText)
}

// RefreshTheme updates theme-dependent UI elements.
func (t *DebugTab) RefreshTheme() {
	t.updateButtonBar()
	th := CurrentTheme
	t.logView.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.logView.SetTextColor(th.Text)
	t.statusBar.SetTextColor(th.Text)
	t.lastCount = -1
}

package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logix"
)

// TypesTab lists the registered data types.
type TypesTab struct {
	app       *App
	flex      *tview.Flex
	filter    *tview.InputField
	table     *tview.Table
	tableBox  *tview.Flex
	details   *tview.TextView
	statusBar *tview.TextView
	buttonBar *tview.TextView

	types        []datatype.DataType // Rows after the header, filtered
	filterText   string
	showTagNames bool
}

// NewTypesTab creates a new types tab.
func NewTypesTab(app *App) *TypesTab {
	t := &TypesTab{app: app}
	t.setupUI()
	return t
}

func (t *TypesTab) setupUI() {
	t.buttonBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.updateButtonBar()

	t.filter = tview.NewInputField().
		SetLabel("Filter: ").
		SetFieldWidth(30)
	t.filter.SetChangedFunc(func(text string) {
		t.filterText = strings.ToLower(strings.TrimSpace(text))
		t.Refresh()
	})
	t.filter.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyEnter {
			t.app.app.SetFocus(t.table)
			return nil
		}
		return event
	})
	ApplyInputFieldTheme(t.filter)

	t.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	ApplyTableTheme(t.table)
	t.table.SetInputCapture(t.handleKeys)
	t.table.SetSelectionChangedFunc(func(row, col int) {
		t.showDetails(row)
	})
	t.setHeaders()

	t.tableBox = tview.NewFlex().SetDirection(tview.FlexRow)
	t.tableBox.SetBorder(true).SetTitle(" Data Types ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)
	t.tableBox.AddItem(t.table, 0, 1, true)

	t.details = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetTextColor(CurrentTheme.Text)
	t.details.SetBorder(true).SetTitle(" Members ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)
	t.details.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyTab {
			t.app.app.SetFocus(t.table)
			return nil
		}
		return event
	})

	content := tview.NewFlex().
		AddItem(t.tableBox, 0, 1, true).
		AddItem(t.details, 56, 0, false)

	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)

	header := tview.NewFlex().
		AddItem(t.filter, 40, 0, false).
		AddItem(nil, 0, 1, false)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.buttonBar, 1, 0, false).
		AddItem(header, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)
}

func (t *TypesTab) setHeaders() {
	headers := []string{"Name", "Class", "Family", "Members"}
	for i, h := range headers {
		t.table.SetCell(0, i, tview.NewTableCell(h).
			SetTextColor(CurrentTheme.Accent).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
}

func (t *TypesTab) handleKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyTab:
		t.app.app.SetFocus(t.details)
		return nil
	}
	switch event.Rune() {
	case '/':
		t.app.app.SetFocus(t.filter)
		return nil
	case 'c':
		t.filter.SetText("")
		return nil
	case 't':
		t.showTagNames = !t.showTagNames
		row, _ := t.table.GetSelection()
		t.showDetails(row)
		return nil
	}
	return event
}

func (t *TypesTab) matchesFilter(dt datatype.DataType) bool {
	if t.filterText == "" {
		return true
	}
	return strings.Contains(strings.ToLower(dt.Name()), t.filterText) ||
		strings.Contains(strings.ToLower(dt.Description()), t.filterText)
}

// Refresh reloads the table from the registry.
func (t *TypesTab) Refresh() {
	for t.table.GetRowCount() > 1 {
		t.table.RemoveRow(1)
	}
	t.types = t.types[:0]

	th := CurrentTheme
	all := t.app.project.Types()
	for _, dt := range all {
		if !t.matchesFilter(dt) {
			continue
		}
		t.types = append(t.types, dt)
		row := len(t.types)
		color := th.Text
		if dt.Class() == datatype.ClassUser {
			color = th.Accent
		}
		t.table.SetCell(row, 0, tview.NewTableCell(dt.Name()).SetTextColor(color).SetExpansion(1))
		t.table.SetCell(row, 1, tview.NewTableCell(dt.Class().String()).SetTextColor(th.Text))
		t.table.SetCell(row, 2, tview.NewTableCell(dt.Family().String()).SetTextColor(th.TextDim))
		t.table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", len(dt.Members()))).SetTextColor(th.Text).SetAlign(tview.AlignRight))
	}

	if len(t.types) > 0 {
		row, _ := t.table.GetSelection()
		if row < 1 || row > len(t.types) {
			row = 1
		}
		t.table.Select(row, 0)
		t.showDetails(row)
	} else {
		t.details.SetText("")
	}

	status := fmt.Sprintf(" %d types", len(all))
	if t.filterText != "" {
		status += fmt.Sprintf(" (%d shown)", len(t.types))
	}
	t.statusBar.SetText(status)
}

func (t *TypesTab) showDetails(row int) {
	if row < 1 || row > len(t.types) {
		return
	}
	t.details.SetText(typeDetails(t.types[row-1], t.showTagNames))
}

// typeDetails renders a type's members and the types it depends on.
func typeDetails(dt datatype.DataType, tagNames bool) string {
	th := CurrentTheme
	var sb strings.Builder

	sb.WriteString(th.Label("Name", dt.Name()) + "\n")
	if dt.Description() != "" {
		sb.WriteString(th.Label("Description", dt.Description()) + "\n")
	}

	if tagNames {
		sb.WriteString("\n" + th.TagAccent + "Tag names:" + th.TagReset + "\n")
		for _, name := range datatype.TagNames(dt) {
			sb.WriteString("  " + tview.Escape(name.String()) + "\n")
		}
		return sb.String()
	}

	if members := dt.Members(); len(members) > 0 {
		sb.WriteString("\n" + th.TagAccent + "Members:" + th.TagReset + "\n")
		for _, m := range members {
			typeName := m.Type.Name()
			if dims := m.Dimensions(); !dims.IsEmpty() {
				if a, ok := m.Type.(*datatype.Array); ok {
					typeName = a.ElementType().Name()
				}
				typeName += "[" + dims.String() + "]"
			}
			line := fmt.Sprintf("  %-20s %s", m.Name, typeName)
			sb.WriteString(tview.Escape(line))
			if m.Radix != logix.Null {
				sb.WriteString(" " + th.Dim(m.Radix.String()))
			}
			if m.Description != "" {
				sb.WriteString(" " + th.Dim(m.Description))
			}
			sb.WriteString("\n")
		}
	}

	if deps := datatype.DependentTypes(dt); len(deps) > 0 {
		names := make([]string, len(deps))
		for i, d := range deps {
			names[i] = d.Name()
		}
		sb.WriteString("\n" + th.Label("Depends on", strings.Join(names, ", ")) + "\n")
	}
	return sb.String()
}

func (t *TypesTab) updateButtonBar() {
	th := CurrentTheme
	buttonText := " " + th.TagHotkey + "/" + th.TagActionText + " filter  " +
		th.TagHotkey + "c" + th.TagActionText + "lear  " +
		th.TagHotkey + "t" + th.TagActionText + "ag names  " +
		th.TagActionText + "│  " +
		th.TagHotkey + "?" + th.TagActionText + " help " + th.TagReset
	t.buttonBar.SetText(buttonText)
}

// GetPrimitive returns the main primitive for this tab.
func (t *TypesTab) GetPrimitive() tview.Primitive {
	return t.flex
}

// GetFocusable returns the element that should receive focus.
func (t *TypesTab) GetFocusable() tview.Primitive {
	return t.table
}

// RefreshTheme updates theme-dependent UI elements.
func (t *TypesTab) RefreshTheme() {
	th := CurrentTheme
	t.updateButtonBar()
	ApplyInputFieldTheme(t.filter)
	ApplyTableTheme(t.table)
	t.setHeaders()
	t.tableBox.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.details.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.details.SetTextColor(th.Text)
	t.statusBar.SetTextColor(th.Text)
	t.Refresh()
}

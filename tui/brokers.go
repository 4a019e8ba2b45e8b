package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tnunnink/LogixHelper/kafka"
	"github.com/tnunnink/LogixHelper/mqtt"
	"github.com/tnunnink/LogixHelper/namespace"
	"github.com/tnunnink/LogixHelper/valkey"
)

// Brokers groups the publishers shown on the Brokers tab. Any may be nil.
type Brokers struct {
	MQTT   *mqtt.Manager
	Valkey *valkey.Manager
	Kafka  *kafka.Manager
}

// brokerRow is one publisher in the table.
type brokerRow struct {
	kind    string
	name    string
	address string
	status  string
	running bool
	connect func() error
	stop    func() error
}

// BrokersTab shows the state of every configured publisher.
type BrokersTab struct {
	app       *App
	flex      *tview.Flex
	table     *tview.Table
	tableBox  *tview.Flex
	info      *tview.TextView
	statusBar *tview.TextView
	buttonBar *tview.TextView

	rows []brokerRow
}

// NewBrokersTab creates a new brokers tab.
func NewBrokersTab(app *App) *BrokersTab {
	t := &BrokersTab{app: app}
	t.setupUI()
	return t
}

func (t *BrokersTab) setupUI() {
	t.buttonBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.updateButtonBar()

	t.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	ApplyTableTheme(t.table)
	t.table.SetInputCapture(t.handleKeys)
	t.table.SetSelectedFunc(t.onSelect)
	t.setHeaders()

	t.tableBox = tview.NewFlex().SetDirection(tview.FlexRow)
	t.tableBox.SetBorder(true).SetTitle(" Brokers ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)
	t.tableBox.AddItem(t.table, 0, 1, true)

	t.info = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)
	t.info.SetBorder(true).SetTitle(" Topic Structure ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)
	t.updateInfo()

	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.buttonBar, 1, 0, false).
		AddItem(t.tableBox, 0, 1, true).
		AddItem(t.info, 9, 0, false).
		AddItem(t.statusBar, 1, 0, false)
}

func (t *BrokersTab) setHeaders() {
	headers := []string{"", "Kind", "Name", "Address", "Status"}
	for i, h := range headers {
		t.table.SetCell(0, i, tview.NewTableCell(h).
			SetTextColor(CurrentTheme.Accent).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}
}

func (t *BrokersTab) handleKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'c':
		t.connectSelected()
		return nil
	case 'C':
		t.disconnectSelected()
		return nil
	}
	return event
}

func (t *BrokersTab) selected() (brokerRow, bool) {
	row, _ := t.table.GetSelection()
	if row < 1 || row > len(t.rows) {
		return brokerRow{}, false
	}
	return t.rows[row-1], true
}

func (t *BrokersTab) onSelect(row, col int) {
	r, ok := t.selected()
	if !ok {
		return
	}
	if r.running {
		t.disconnectSelected()
	} else {
		t.connectSelected()
	}
}

// connectSelected connects in the background; broker dials can block.
func (t *BrokersTab) connectSelected() {
	r, ok := t.selected()
	if !ok {
		return
	}
	t.app.setStatus(fmt.Sprintf("Connecting %s %s...", r.kind, r.name))
	go func() {
		if err := r.connect(); err != nil {
			t.app.SetStatus(fmt.Sprintf("%s %s: %v", r.kind, r.name, err))
		} else {
			t.app.SetStatus(fmt.Sprintf("Connected %s %s", r.kind, r.name))
		}
		t.app.QueueUpdateDraw(t.Refresh)
	}()
}

func (t *BrokersTab) disconnectSelected() {
	r, ok := t.selected()
	if !ok {
		return
	}
	go func() {
		if err := r.stop(); err != nil {
			t.app.SetStatus(fmt.Sprintf("%s %s: %v", r.kind, r.name, err))
		} else {
			t.app.SetStatus(fmt.Sprintf("Disconnected %s %s", r.kind, r.name))
		}
		t.app.QueueUpdateDraw(t.Refresh)
	}()
}

func (t *BrokersTab) updateInfo() {
	th := CurrentTheme
	b := namespace.New(t.app.config.Namespace, "")
	text := "\n"
	text += " " + th.TagAccent + "MQTT:" + th.TagReset + "   " + tview.Escape(b.MQTTTagTopic("{tag}.{member}")) + "\n"
	text += " " + th.TagAccent + "Valkey:" + th.TagReset + " " + tview.Escape(b.ValkeyTagKey("{tag}.{member}")) + "\n"
	text += " " + th.TagAccent + "Kafka:" + th.TagReset + "  " + tview.Escape(b.KafkaTagTopic()) + " keyed by tag\n"
	text += " " + th.Dim("A selector is inserted after the namespace when set") + "\n\n"
	text += " " + th.Dim("Only published tags are sent; values are sent on change") + "\n"
	t.info.SetText(text)
}

// collect builds a row per publisher.
func (t *BrokersTab) collect() []brokerRow {
	var rows []brokerRow
	b := t.app.brokers

	if b.MQTT != nil {
		for _, p := range b.MQTT.List() {
			p := p
			rows = append(rows, brokerRow{
				kind: "MQTT", name: p.Name(), address: p.Address(),
				status: runningStatus(p.IsRunning()), running: p.IsRunning(),
				connect: p.Start,
				stop:    func() error { p.Stop(); return nil },
			})
		}
	}
	if b.Valkey != nil {
		for _, p := range b.Valkey.List() {
			p := p
			rows = append(rows, brokerRow{
				kind: "Valkey", name: p.Name(), address: p.Address(),
				status: runningStatus(p.IsRunning()), running: p.IsRunning(),
				connect: p.Start,
				stop:    p.Stop,
			})
		}
	}
	if b.Kafka != nil {
		for _, name := range b.Kafka.ListClusters() {
			name := name
			status, _ := b.Kafka.GetClusterStatus(name)
			address := ""
			if p := b.Kafka.GetProducer(name); p != nil {
				address = fmt.Sprintf("%v", p.Brokers())
			}
			rows = append(rows, brokerRow{
				kind: "Kafka", name: name, address: address,
				status: status.String(), running: status == kafka.StatusConnected,
				connect: func() error {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					return b.Kafka.Connect(ctx, name)
				},
				stop: func() error { return b.Kafka.Disconnect(name) },
			})
		}
	}
	return rows
}

func runningStatus(running bool) string {
	if running {
		return "Connected"
	}
	return "Disconnected"
}

// Refresh reloads the table.
func (t *BrokersTab) Refresh() {
	for t.table.GetRowCount() > 1 {
		t.table.RemoveRow(1)
	}
	t.rows = t.collect()

	th := CurrentTheme
	connected := 0
	for i, r := range t.rows {
		row := i + 1
		indicator := IndicatorIdle
		color := th.TextDim
		if r.running {
			indicator = IndicatorPublished
			color = th.Published
			connected++
		}
		t.table.SetCell(row, 0, tview.NewTableCell(indicator).SetTextColor(color))
		t.table.SetCell(row, 1, tview.NewTableCell(r.kind).SetTextColor(th.Text))
		t.table.SetCell(row, 2, tview.NewTableCell(r.name).SetTextColor(th.Text).SetExpansion(1))
		t.table.SetCell(row, 3, tview.NewTableCell(r.address).SetTextColor(th.TextDim))
		t.table.SetCell(row, 4, tview.NewTableCell(r.status).SetTextColor(color))
	}
	t.statusBar.SetText(fmt.Sprintf(" %d brokers, %d connected", len(t.rows), connected))
}

func (t *BrokersTab) updateButtonBar() {
	th := CurrentTheme
	buttonText := " " + th.TagHotkey + "c" + th.TagActionText + "onnect  " +
		th.TagHotkey + "C" + th.TagActionText + " disconnect  " +
		th.TagHotkey + "Enter" + th.TagActionText + " toggle  " +
		th.TagActionText + "│  " +
		th.TagHotkey + "?" + th.TagActionText + " help " + th.TagReset
	t.buttonBar.SetText(buttonText)
}

// GetPrimitive returns the main primitive for this tab.
func (t *BrokersTab) GetPrimitive() tview.Primitive {
	return t.flex
}

// GetFocusable returns the element that should receive focus.
func (t *BrokersTab) GetFocusable() tview.Primitive {
	return t.table
}

// RefreshTheme updates theme-dependent UI elements.
func (t *BrokersTab) RefreshTheme() {
	th := CurrentTheme
	t.updateButtonBar()
	ApplyTableTheme(t.table)
	t.setHeaders()
	t.tableBox.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.info.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.info.SetTextColor(th.Text)
	t.statusBar.SetTextColor(th.Text)
	t.updateInfo()
	t.Refresh()
}

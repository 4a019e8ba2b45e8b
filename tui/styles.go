// Package tui provides the terminal browser for a loaded project.
package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tnunnink/LogixHelper/logging"
)

// Theme is a named color scheme. The Tag* fields are tview color tags for
// inline text.
type Theme struct {
	Name         string
	Text         tcell.Color
	TextDim      tcell.Color
	Accent       tcell.Color
	Border       tcell.Color
	SelectedText tcell.Color
	FieldBg      tcell.Color
	Published    tcell.Color
	ReadOnly     tcell.Color
	Error        tcell.Color

	TagText       string
	TagTextDim    string
	TagAccent     string
	TagPrimary    string
	TagSuccess    string
	TagError      string
	TagHotkey     string
	TagActionText string
	TagReset      string
}

func newTheme(name string, text, dim, accent, border, selected, field, published, readOnly, errColor tcell.Color) Theme {
	tag := func(c tcell.Color) string { return fmt.Sprintf("[#%06x]", c.Hex()) }
	return Theme{
		Name:          name,
		Text:          text,
		TextDim:       dim,
		Accent:        accent,
		Border:        border,
		SelectedText:  selected,
		FieldBg:       field,
		Published:     published,
		ReadOnly:      readOnly,
		Error:         errColor,
		TagText:       tag(text),
		TagTextDim:    tag(dim),
		TagAccent:     tag(accent),
		TagPrimary:    tag(border),
		TagSuccess:    tag(published),
		TagError:      tag(errColor),
		TagHotkey:     tag(accent),
		TagActionText: tag(text),
		TagReset:      "[-]",
	}
}

// Themes lists the available themes in F6 cycle order.
var Themes = []Theme{
	newTheme("default",
		tcell.NewHexColor(0xd0d0d0), tcell.NewHexColor(0x808080), tcell.NewHexColor(0xffaf00),
		tcell.NewHexColor(0x5f87af), tcell.NewHexColor(0x000000), tcell.NewHexColor(0x303030),
		tcell.NewHexColor(0x5faf5f), tcell.NewHexColor(0x8787af), tcell.NewHexColor(0xd75f5f)),
	newTheme("retro",
		tcell.NewHexColor(0x33ff33), tcell.NewHexColor(0x1f991f), tcell.NewHexColor(0xccff66),
		tcell.NewHexColor(0x33ff33), tcell.NewHexColor(0x000000), tcell.NewHexColor(0x0a290a),
		tcell.NewHexColor(0xccff66), tcell.NewHexColor(0x1f991f), tcell.NewHexColor(0xff5555)),
	newTheme("highcontrast",
		tcell.NewHexColor(0xffffff), tcell.NewHexColor(0xc0c0c0), tcell.NewHexColor(0xffff00),
		tcell.NewHexColor(0xffffff), tcell.NewHexColor(0x000000), tcell.NewHexColor(0x000080),
		tcell.NewHexColor(0x00ff00), tcell.NewHexColor(0x00ffff), tcell.NewHexColor(0xff0000)),
}

// Label renders "name: value" with the name in the accent color.
func (th Theme) Label(name, value string) string {
	return th.TagAccent + name + ":" + th.TagReset + " " + tview.Escape(value)
}

// Dim renders text in the dim color.
func (th Theme) Dim(text string) string {
	return th.TagTextDim + tview.Escape(text) + th.TagReset
}

// SuccessText renders text in the published color.
func (th Theme) SuccessText(text string) string {
	return th.TagSuccess + tview.Escape(text) + th.TagReset
}

// ErrorText renders text in the error color.
func (th Theme) ErrorText(text string) string {
	return th.TagError + tview.Escape(text) + th.TagReset
}

// CurrentTheme is the active theme.
var CurrentTheme = Themes[0]

var currentThemeIndex int

// SetTheme activates the named theme. Unknown names are ignored.
func SetTheme(name string) bool {
	for i, th := range Themes {
		if strings.EqualFold(th.Name, name) {
			currentThemeIndex = i
			CurrentTheme = th
			return true
		}
	}
	return false
}

// NextTheme activates the next theme and returns its name.
func NextTheme() string {
	currentThemeIndex = (currentThemeIndex + 1) % len(Themes)
	CurrentTheme = Themes[currentThemeIndex]
	return CurrentTheme.Name
}

// GetThemeName returns the active theme's name.
func GetThemeName() string {
	return CurrentTheme.Name
}

// ApplyInputFieldTheme colors an input field.
func ApplyInputFieldTheme(f *tview.InputField) {
	th := CurrentTheme
	f.SetLabelColor(th.Accent).
		SetFieldBackgroundColor(th.FieldBg).
		SetFieldTextColor(th.Text)
}

// ApplyTableTheme colors a table's selection.
func ApplyTableTheme(t *tview.Table) {
	th := CurrentTheme
	t.SetSelectedStyle(tcell.StyleDefault.Foreground(th.SelectedText).Background(th.Accent))
}

// ApplyFormTheme colors a form and its buttons.
func ApplyFormTheme(f *tview.Form) {
	th := CurrentTheme
	f.SetLabelColor(th.Accent).
		SetFieldBackgroundColor(th.FieldBg).
		SetFieldTextColor(th.Text).
		SetButtonBackgroundColor(th.Border).
		SetButtonTextColor(th.SelectedText)
	f.SetBorderColor(th.Border).SetTitleColor(th.Accent)
}

// ApplyASCIIBorders switches tview to plain ASCII box drawing.
func ApplyASCIIBorders() {
	tview.Borders.Horizontal = '-'
	tview.Borders.Vertical = '|'
	tview.Borders.TopLeft = '+'
	tview.Borders.TopRight = '+'
	tview.Borders.BottomLeft = '+'
	tview.Borders.BottomRight = '+'
	tview.Borders.HorizontalFocus = '='
	tview.Borders.VerticalFocus = '|'
	tview.Borders.TopLeftFocus = '+'
	tview.Borders.TopRightFocus = '+'
	tview.Borders.BottomLeftFocus = '+'
	tview.Borders.BottomRightFocus = '+'
}

func debugLog(format string, args ...interface{}) {
	logging.DebugLog("TUI", format, args...)
}

// Status indicator strings
const (
	IndicatorPublished = "●"
	IndicatorIdle      = "○"
	IndicatorReadOnly  = "R"
)

// Tab labels
const (
	TabTags    = "Tags"
	TabTypes   = "Types"
	TabBrokers = "Brokers"
	TabDebug   = "Debug"
)

// HelpText is shown by '?'.
const HelpText = `
 Keyboard Shortcuts
 ──────────────────────────────────────

 Navigation
   Shift+Tab    Switch tabs
   Tab          Move to details panel
   Enter        Expand / collapse
   Escape       Close dialog / Back
   ?            Show this help
   F6           Next theme

 Tags Tab
   /            Focus filter
   c            Clear filter
   Space        Toggle tag publishing
   e            Edit member value
   r            Toggle radix conversions
   p            Publish all tags now

 Types Tab
   /            Focus filter
   c            Clear filter
   t            Show type tag names

 Brokers Tab
   c            Connect
   C            Disconnect
   Enter        Toggle connection

 Debug Tab
   c            Clear log
   g / G        Top / bottom

 Application
   Q            Quit
`

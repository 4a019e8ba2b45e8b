package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tnunnink/LogixHelper/config"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/publish"
	"github.com/tnunnink/LogixHelper/tag"
)

// App is the main TUI application.
type App struct {
	app            *tview.Application
	pages          *tview.Pages
	tabs           *tview.TextView
	statusBar      *tview.TextView
	themeIndicator *tview.TextView

	browserTab *BrowserTab
	typesTab   *TypesTab
	brokersTab *BrokersTab
	debugTab   *DebugTab

	project    *project.Project
	hub        *publish.Hub // nil when nothing publishes
	brokers    Brokers
	config     *config.Config
	configPath string
	store      *DebugLogStore

	currentTab int
	tabNames   []string

	stopChan         chan struct{}
	changeListenerID project.ListenerID
	onShutdown       func()
}

// NewApp creates a new TUI application. hub and store may be nil.
func NewApp(cfg *config.Config, configPath string, p *project.Project, hub *publish.Hub, brokers Brokers, store *DebugLogStore) *App {
	if cfg.UI.Theme != "" {
		SetTheme(cfg.UI.Theme)
	}
	if cfg.UI.ASCIIMode {
		ApplyASCIIBorders()
	}

	a := &App{
		app:        tview.NewApplication(),
		config:     cfg,
		configPath: configPath,
		project:    p,
		hub:        hub,
		brokers:    brokers,
		store:      store,
		tabNames:   []string{TabTags, TabTypes, TabBrokers, TabDebug},
		stopChan:   make(chan struct{}),
	}

	a.setupUI()
	return a
}

// SetOnShutdown sets a callback run when the user quits, before the UI stops.
func (a *App) SetOnShutdown(fn func()) {
	a.onShutdown = fn
}

func (a *App) setupUI() {
	a.tabs = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft).
		SetTextColor(CurrentTheme.Text)

	a.themeIndicator = tview.NewTextView().
		SetTextAlign(tview.AlignRight)
	a.updateThemeIndicator()

	a.pages = tview.NewPages()

	a.browserTab = NewBrowserTab(a)
	a.typesTab = NewTypesTab(a)
	a.brokersTab = NewBrokersTab(a)
	a.debugTab = NewDebugTab(a)

	a.pages.AddPage(TabTags, a.browserTab.GetPrimitive(), true, true)
	a.pages.AddPage(TabTypes, a.typesTab.GetPrimitive(), true, false)
	a.pages.AddPage(TabBrokers, a.brokersTab.GetPrimitive(), true, false)
	a.pages.AddPage(TabDebug, a.debugTab.GetPrimitive(), true, false)

	bottomBar := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.statusBar, 0, 1, false).
		AddItem(a.themeIndicator, 30, 0, false)

	mainFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.tabs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(bottomBar, 1, 0, false)

	a.app.SetInputCapture(a.handleGlobalKeys)

	a.app.SetRoot(mainFlex, true)
	a.updateTabsDisplay()
	a.setStatus("Ready. Press ? for help.")

	a.focusCurrentTab()
}

func (a *App) isMainTab(page string) bool {
	for _, name := range a.tabNames {
		if page == name {
			return true
		}
	}
	return false
}

func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	if event == nil {
		return nil
	}

	// Modals and forms get every key.
	frontPage, _ := a.pages.GetFrontPage()
	if !a.isMainTab(frontPage) {
		return event
	}

	// Typing into a filter must not trigger shortcuts.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	if event.Rune() == 'Q' {
		a.Shutdown()
		return nil
	}

	if event.Key() == tcell.KeyBacktab {
		a.nextTab()
		return nil
	}

	if event.Rune() == '?' {
		a.showHelp()
		return nil
	}

	if event.Key() == tcell.KeyF6 {
		themeName := NextTheme()
		a.updateTabsDisplay()
		a.updateThemeIndicator()
		a.refreshAllThemes()
		a.config.Lock()
		a.config.UI.Theme = themeName
		if err := a.config.UnlockAndSave(a.configPath); err != nil {
			a.setStatus("Failed to save theme: " + err.Error())
		}
		a.app.Sync()
		return nil
	}

	return event
}

func (a *App) nextTab() {
	a.currentTab = (a.currentTab + 1) % len(a.tabNames)
	a.switchToTab(a.currentTab)
}

func (a *App) switchToTab(index int) {
	a.currentTab = index
	a.pages.SwitchToPage(a.tabNames[index])
	a.updateTabsDisplay()
	a.focusCurrentTab()
}

func (a *App) focusCurrentTab() {
	switch a.tabNames[a.currentTab] {
	case TabTags:
		a.app.SetFocus(a.browserTab.GetFocusable())
	case TabTypes:
		a.app.SetFocus(a.typesTab.GetFocusable())
	case TabBrokers:
		a.brokersTab.Refresh()
		a.app.SetFocus(a.brokersTab.GetFocusable())
	case TabDebug:
		a.debugTab.Refresh()
		a.app.SetFocus(a.debugTab.GetFocusable())
	}
}

func (a *App) updateTabsDisplay() {
	th := CurrentTheme
	text := ""
	for i, name := range a.tabNames {
		if i > 0 {
			text += th.TagTextDim + "  │  " + th.TagReset
		}
		if i == a.currentTab {
			// TagAccent is "[#RRGGBB]"; "::b" goes before the closing bracket
			colorTag := th.TagAccent[:len(th.TagAccent)-1] + "::b]"
			text += colorTag + name + "[-::-]"
		} else {
			text += th.TagTextDim + name + th.TagReset
		}
	}
	a.tabs.SetText(text)
	a.tabs.SetTextColor(th.Text)
}

func (a *App) setStatus(msg string) {
	a.statusBar.SetText(" " + tview.Escape(msg))
}

// SetStatus shows msg in the status bar. Safe from any goroutine.
func (a *App) SetStatus(msg string) {
	a.app.QueueUpdateDraw(func() { a.setStatus(msg) })
}

func (a *App) updateThemeIndicator() {
	th := CurrentTheme
	a.themeIndicator.SetText("Theme (F6): " + GetThemeName() + " ")
	a.themeIndicator.SetTextColor(th.TextDim)
	a.statusBar.SetTextColor(th.Text)
}

func (a *App) showHelp() {
	const pageName = "help"

	textView := tview.NewTextView().
		SetText(HelpText).
		SetDynamicColors(true)
	textView.SetBorder(true).SetTitle(" Help ")

	textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyEnter || event.Rune() == '?' {
			a.closeModal(pageName)
			return nil
		}
		return event
	})

	a.showCenteredModal(pageName, textView, 45, 34)
}

func (a *App) showError(title, message string) {
	modal := tview.NewModal().
		SetText(title + "\n\n" + message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage("error")
			a.focusCurrentTab()
		})

	a.pages.AddPage("error", modal, true, true)
}

// Run starts the TUI application and blocks until it stops.
func (a *App) Run() error {
	// Listeners run under the project lock; queue without blocking it.
	a.changeListenerID = a.project.AddOnChangeListener(func(c tag.Change) {
		go a.app.QueueUpdateDraw(func() {
			a.browserTab.OnChange(c)
		})
	})

	a.browserTab.Refresh()
	a.typesTab.Refresh()
	a.brokersTab.Refresh()
	a.debugTab.Refresh()

	go a.periodicRefresh()

	return a.app.Run()
}

// periodicRefresh redraws the broker table and debug log while visible.
func (a *App) periodicRefresh() {
	time.Sleep(500 * time.Millisecond)

	for {
		select {
		case <-a.stopChan:
			return
		case <-time.After(1 * time.Second):
			a.app.QueueUpdateDraw(func() {
				frontPage, _ := a.pages.GetFrontPage()
				switch frontPage {
				case TabBrokers:
					a.brokersTab.Refresh()
				case TabDebug:
					a.debugTab.Refresh()
				}
			})
		}
	}
}

// Shutdown stops the UI and runs the shutdown callback.
func (a *App) Shutdown() {
	select {
	case <-a.stopChan:
		return
	default:
		close(a.stopChan)
	}

	a.project.RemoveOnChangeListener(a.changeListenerID)
	a.app.Stop()

	if a.onShutdown == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		a.onShutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// QueueUpdateDraw queues a function to run on the UI thread.
func (a *App) QueueUpdateDraw(f func()) {
	a.app.QueueUpdateDraw(f)
}

// showCenteredModal displays content centered on the screen and focuses it.
func (a *App) showCenteredModal(pageName string, content tview.Primitive, width, height int) {
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(content, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)

	a.pages.AddPage(pageName, modal, true, true)
	a.app.SetFocus(content)
}

// showFormModal displays a form in a centered modal. Escape calls onEscape.
func (a *App) showFormModal(pageName string, form *tview.Form, width, height int, onEscape func()) {
	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			if onEscape != nil {
				onEscape()
			}
			return nil
		}
		return event
	})

	a.showCenteredModal(pageName, form, width, height)
}

func (a *App) closeModal(pageName string) {
	a.pages.RemovePage(pageName)
	a.focusCurrentTab()
}

func (a *App) refreshAllThemes() {
	a.browserTab.RefreshTheme()
	a.typesTab.RefreshTheme()
	a.brokersTab.RefreshTheme()
	a.debugTab.RefreshTheme()
}

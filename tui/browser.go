package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tnunnink/LogixHelper/datatype"
	"github.com/tnunnink/LogixHelper/logix"
	"github.com/tnunnink/LogixHelper/project"
	"github.com/tnunnink/LogixHelper/tag"
	"github.com/tnunnink/LogixHelper/tagname"
)

// BrowserTab shows tags as a tree of members.
type BrowserTab struct {
	app       *App
	flex      *tview.Flex
	filter    *tview.InputField
	tree      *tview.TreeView
	treeFrame *tview.Frame
	details   *tview.TextView
	statusBar *tview.TextView
	buttonBar *tview.TextView

	treeRoot   *tview.TreeNode
	nodes      map[string]*tview.TreeNode // Member key -> node for quick lookup
	filterText string                     // Current filter text (lowercase)
	showRadix  bool                       // Details panel lists every radix rendering
}

// NewBrowserTab creates a new browser tab.
func NewBrowserTab(app *App) *BrowserTab {
	t := &BrowserTab{
		app:   app,
		nodes: make(map[string]*tview.TreeNode),
	}
	t.setupUI()
	return t
}

func (t *BrowserTab) setupUI() {
	t.buttonBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.updateButtonBar()

	t.filter = tview.NewInputField().
		SetLabel("Filter: ").
		SetFieldWidth(30)
	t.filter.SetChangedFunc(func(text string) {
		t.applyFilter(text)
	})
	t.filter.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyEnter {
			t.app.app.SetFocus(t.tree)
			return nil
		}
		return event
	})
	ApplyInputFieldTheme(t.filter)

	header := tview.NewFlex().
		AddItem(t.filter, 40, 0, false).
		AddItem(nil, 0, 1, false)

	t.treeRoot = tview.NewTreeNode("Tags").SetColor(CurrentTheme.Accent).
		SetSelectedTextStyle(tcell.StyleDefault.Foreground(CurrentTheme.SelectedText).Background(CurrentTheme.Accent))
	t.tree = tview.NewTreeView().
		SetRoot(t.treeRoot).
		SetCurrentNode(t.treeRoot)

	t.tree.SetSelectedFunc(t.onNodeSelected)
	t.tree.SetChangedFunc(func(node *tview.TreeNode) {
		t.showDetails(node)
	})
	t.tree.SetInputCapture(t.handleTreeKeys)

	t.treeFrame = tview.NewFrame(t.tree).SetBorders(0, 0, 0, 0, 0, 0)
	t.treeFrame.SetBorder(true).SetTitle(" Tags ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)

	t.details = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true).
		SetTextColor(CurrentTheme.Text)
	t.details.SetBorder(true).SetTitle(" Member Details ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)
	t.details.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyTab {
			t.app.app.SetFocus(t.tree)
			return nil
		}
		return event
	})

	content := tview.NewFlex().
		AddItem(t.treeFrame, 0, 1, true).
		AddItem(t.details, 48, 0, false)

	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.buttonBar, 1, 0, false).
		AddItem(header, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)
}

func (t *BrowserTab) handleTreeKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter:
		if node := t.tree.GetCurrentNode(); node != nil {
			t.onNodeSelected(node)
		}
		return nil
	case tcell.KeyTab:
		t.app.app.SetFocus(t.details)
		return nil
	case tcell.KeyEscape:
		t.app.app.SetFocus(t.tree)
		return nil
	}

	switch event.Rune() {
	case ' ':
		if node := t.tree.GetCurrentNode(); node != nil {
			t.togglePublish(node)
		}
		return nil
	case '/':
		t.app.app.SetFocus(t.filter)
		return nil
	case 'c':
		t.filter.SetText("")
		t.applyFilter("")
		return nil
	case 'e':
		if node := t.tree.GetCurrentNode(); node != nil {
			t.showWriteDialog(node)
		}
		return nil
	case 'r':
		t.showRadix = !t.showRadix
		t.showDetails(t.tree.GetCurrentNode())
		return nil
	case 'p':
		if t.app.hub == nil {
			t.app.setStatus("Publishing is not configured")
			return nil
		}
		n := t.app.hub.PublishAll()
		t.app.setStatus(fmt.Sprintf("Published %d members", n))
		return nil
	}

	return event
}

// nodePath returns the member path a node refers to.
func nodePath(node *tview.TreeNode) (tagname.TagName, bool) {
	if node == nil {
		return "", false
	}
	path, ok := node.GetReference().(tagname.TagName)
	return path, ok
}

func (t *BrowserTab) onNodeSelected(node *tview.TreeNode) {
	path, ok := nodePath(node)
	if !ok {
		if node != t.treeRoot {
			node.SetExpanded(!node.IsExpanded())
		}
		return
	}

	if len(node.GetChildren()) == 0 {
		if t.expandMembers(node, path) > 0 {
			node.SetExpanded(true)
		}
	} else {
		node.SetExpanded(!node.IsExpanded())
	}
	t.showDetails(node)
}

// expandMembers adds a child node for each direct member of path.
func (t *BrowserTab) expandMembers(node *tview.TreeNode, path tagname.TagName) int {
	info, err := t.app.project.View(path)
	if err != nil {
		debugLog("expand %s: %v", path, err)
		return 0
	}
	for _, name := range info.Members {
		childPath := tagname.Concat(path, tagname.TagName(name))
		child, err := t.app.project.View(childPath)
		if err != nil {
			continue
		}
		childNode := tview.NewTreeNode("").SetReference(childPath).SetSelectable(true)
		t.updateNodeText(childNode, child)
		node.AddChild(childNode)
		t.nodes[childPath.Key()] = childNode
	}
	return len(info.Members)
}

func (t *BrowserTab) isPublished(tagName string) bool {
	return t.app.hub != nil && t.app.hub.IsPublished(tagName)
}

func (t *BrowserTab) updateNodeText(node *tview.TreeNode, info project.MemberInfo) {
	th := CurrentTheme
	path := tagname.TagName(info.TagName)
	root := path.Depth() == 0

	label := info.Name
	if !root {
		label = path.Member()
	}

	indicator := ""
	if root {
		indicator = IndicatorIdle + " "
		if t.isPublished(info.Name) {
			indicator = IndicatorPublished + " "
		}
	}

	expand := ""
	if len(info.Members) > 0 {
		expand = th.TagAccent + "+" + th.TagReset
	}

	typeName := info.DataType
	if info.Dimensions != "" {
		typeName += "[" + info.Dimensions + "]"
	}

	value := ""
	if len(info.Members) == 0 && info.Text != "" {
		value = " = " + tview.Escape(info.Text)
	}

	text := fmt.Sprintf("%s%s%s  %s%s%s%s", indicator, expand, tview.Escape(label), th.TagTextDim, typeName, th.TagReset, value)
	if info.Access != datatype.ReadWrite.String() {
		text += " " + th.TagTextDim + IndicatorReadOnly + th.TagReset
	}

	if root && t.isPublished(info.Name) {
		node.SetColor(th.Published)
		node.SetSelectedTextStyle(tcell.StyleDefault.Foreground(th.SelectedText).Background(th.Published).Bold(true))
	} else {
		node.SetColor(th.Text)
		node.SetSelectedTextStyle(tcell.StyleDefault.Foreground(th.SelectedText).Background(th.TextDim))
	}
	node.SetText(text)
}

func (t *BrowserTab) togglePublish(node *tview.TreeNode) {
	path, ok := nodePath(node)
	if !ok {
		return
	}
	if t.app.hub == nil {
		t.app.setStatus("Publishing is not configured")
		return
	}

	name := path.Members()[0]
	enabled := !t.app.hub.IsPublished(name)
	t.app.hub.SetPublished(name, enabled)

	cfg := t.app.config
	cfg.Lock()
	if tc := cfg.FindTag(name); tc != nil {
		tc.Publish = enabled
		if err := cfg.UnlockAndSave(t.app.configPath); err != nil {
			t.app.setStatus("Failed to save config: " + err.Error())
		}
	} else {
		cfg.Unlock()
	}

	if rootNode, ok := t.nodes[tagname.TagName(name).Key()]; ok {
		if info, err := t.app.project.View(tagname.TagName(name)); err == nil {
			t.updateNodeText(rootNode, info)
		}
	}
	if enabled {
		t.app.setStatus(fmt.Sprintf("Publishing %s", name))
	} else {
		t.app.setStatus(fmt.Sprintf("Stopped publishing %s", name))
	}
	t.showDetails(node)
}

func (t *BrowserTab) showWriteDialog(node *tview.TreeNode) {
	path, ok := nodePath(node)
	if !ok {
		return
	}
	info, err := t.app.project.View(path)
	if err != nil {
		t.app.showError("Write", err.Error())
		return
	}
	if len(info.Members) > 0 || info.Value == nil {
		t.app.showError("Not a Value", path.String()+" has no value of its own.\nExpand it and select a member.")
		return
	}
	if info.Access != datatype.ReadWrite.String() {
		t.app.showError("Not Writable", fmt.Sprintf("%s is %s.", path, info.Access))
		return
	}

	const pageName = "write-dialog"

	form := tview.NewForm()
	ApplyFormTheme(form)
	form.SetBorder(true)
	form.SetTitle(fmt.Sprintf(" Write: %s ", path))

	form.AddInputField("Current:", info.Text, 30, nil, nil)
	form.GetFormItemByLabel("Current:").(*tview.InputField).SetDisabled(true)
	form.AddInputField("New Value:", info.Text, 30, nil, nil)

	closeDialog := func() {
		t.app.pages.RemovePage(pageName)
		t.app.app.SetFocus(t.tree)
	}

	form.AddButton("Write", func() {
		text := strings.TrimSpace(form.GetFormItemByLabel("New Value:").(*tview.InputField).GetText())
		if text == "" {
			return
		}
		updated, err := t.app.project.SetValue(path, text)
		if err != nil {
			t.app.setStatus(fmt.Sprintf("Write failed: %v", err))
			return
		}
		closeDialog()
		t.updateNodeText(node, updated)
		t.showDetails(node)
		t.app.setStatus(fmt.Sprintf("Wrote %s to %s", updated.Text, path))
	})
	form.AddButton("Cancel", closeDialog)
	form.SetCancelFunc(closeDialog)

	t.app.showFormModal(pageName, form, 50, 9, closeDialog)
}

// showDetails renders the member under node in the details panel.
func (t *BrowserTab) showDetails(node *tview.TreeNode) {
	path, ok := nodePath(node)
	if !ok {
		t.details.SetText("")
		return
	}
	info, err := t.app.project.View(path)
	if err != nil {
		t.details.SetText(CurrentTheme.TagError + tview.Escape(err.Error()) + CurrentTheme.TagReset)
		return
	}
	t.details.SetText(t.detailsText(info))
}

func (t *BrowserTab) detailsText(info project.MemberInfo) string {
	th := CurrentTheme
	var sb strings.Builder

	sb.WriteString(th.Label("Tag Name", info.TagName) + "\n")
	sb.WriteString(th.Label("Data Type", info.DataType) + "\n")
	sb.WriteString(th.Label("Class", info.Class) + "\n")
	if info.Dimensions != "" {
		sb.WriteString(th.Label("Dimensions", info.Dimensions) + "\n")
	}
	sb.WriteString(th.Label("Radix", info.Radix) + "\n")
	sb.WriteString(th.Label("Access", info.Access) + "\n")
	if info.Description != "" {
		sb.WriteString(th.Label("Description", info.Description) + "\n")
	}
	if len(info.Members) == 0 && info.Text != "" {
		sb.WriteString(th.Label("Value", info.Text) + "\n")
	}
	if len(info.Members) > 0 {
		sb.WriteString(th.Label("Members", fmt.Sprintf("%d", len(info.Members))) + "\n")
	}

	if t.showRadix && len(info.Members) == 0 {
		if lines := radixLines(info); len(lines) > 0 {
			sb.WriteString("\n" + th.TagAccent + "Radix conversions:" + th.TagReset + "\n")
			for _, line := range lines {
				sb.WriteString("  " + tview.Escape(line) + "\n")
			}
		}
	}

	tagName := tagname.TagName(info.TagName).Members()[0]
	if t.isPublished(tagName) {
		sb.WriteString("\n" + th.SuccessText(IndicatorPublished+" Publishing "+tagName))
	} else {
		sb.WriteString("\n" + th.Dim(IndicatorIdle+" Not publishing"))
	}

	sb.WriteString("\n\n" + th.TagPrimary + "Space" + th.TagText + " publish  " +
		th.TagPrimary + "e" + th.TagText + " edit  " +
		th.TagPrimary + "r" + th.TagText + " radix" + th.TagReset)
	return sb.String()
}

// radixLines renders a value member in every radix its kind supports.
func radixLines(info project.MemberInfo) []string {
	a, err := logix.FromText(info.DataType, info.Text)
	if err != nil {
		return nil
	}
	var lines []string
	for _, r := range logix.Radixes {
		if r == logix.Null || !r.Supports(a.Kind()) {
			continue
		}
		text, err := a.ToText(r)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-14s %s", r.String(), text))
	}
	return lines
}

// OnChange updates the node for a changed member if it is shown.
func (t *BrowserTab) OnChange(c tag.Change) {
	node, ok := t.nodes[c.Name.Key()]
	if !ok {
		return
	}
	info, err := t.app.project.View(c.Name)
	if err != nil {
		return
	}
	t.updateNodeText(node, info)
	if t.tree.GetCurrentNode() == node {
		t.details.SetText(t.detailsText(info))
	}
}

func (t *BrowserTab) updateStatus() {
	visible := len(t.treeRoot.GetChildren())
	total := len(t.app.project.Tags())
	published := 0
	for _, tg := range t.app.project.Tags() {
		if t.isPublished(tg.Name().String()) {
			published++
		}
	}
	status := fmt.Sprintf(" %d tags, %d published", total, published)
	if t.filterText != "" {
		status += fmt.Sprintf(" (%d shown)", visible)
	}
	t.statusBar.SetText(status)
}

func (t *BrowserTab) updateButtonBar() {
	th := CurrentTheme
	buttonText := " " + th.TagHotkey + "/" + th.TagActionText + " filter  " +
		th.TagHotkey + "c" + th.TagActionText + "lear  " +
		th.TagHotkey + "Space" + th.TagActionText + " publish  " +
		th.TagHotkey + "e" + th.TagActionText + "dit  " +
		th.TagHotkey + "r" + th.TagActionText + "adix  " +
		th.TagHotkey + "p" + th.TagActionText + "ublish all  " +
		th.TagActionText + "│  " +
		th.TagHotkey + "?" + th.TagActionText + " help " + th.TagReset
	t.buttonBar.SetText(buttonText)
}

// GetPrimitive returns the main primitive for this tab.
func (t *BrowserTab) GetPrimitive() tview.Primitive {
	return t.flex
}

// GetFocusable returns the element that should receive focus.
func (t *BrowserTab) GetFocusable() tview.Primitive {
	return t.tree
}

// RefreshTheme updates theme-dependent UI elements.
func (t *BrowserTab) RefreshTheme() {
	th := CurrentTheme
	t.updateButtonBar()
	ApplyInputFieldTheme(t.filter)
	t.treeRoot.SetColor(th.Accent).
		SetSelectedTextStyle(tcell.StyleDefault.Foreground(th.SelectedText).Background(th.Accent))
	t.treeFrame.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.details.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.details.SetTextColor(th.Text)
	t.statusBar.SetTextColor(th.Text)
	t.loadTags()
}

// Refresh rebuilds the tree.
func (t *BrowserTab) Refresh() {
	t.loadTags()
}

func (t *BrowserTab) loadTags() {
	t.treeRoot.ClearChildren()
	t.nodes = make(map[string]*tview.TreeNode)

	for _, tg := range t.app.project.Tags() {
		if !t.matchesFilter(tg) {
			continue
		}
		info, err := t.app.project.View(tg.Name())
		if err != nil {
			continue
		}
		node := tview.NewTreeNode("").SetReference(tg.Name()).SetSelectable(true)
		t.updateNodeText(node, info)
		t.treeRoot.AddChild(node)
		t.nodes[tg.Name().Key()] = node
	}
	t.treeRoot.SetExpanded(true)
	t.tree.SetCurrentNode(t.treeRoot)
	t.updateStatus()
}

func (t *BrowserTab) applyFilter(filterText string) {
	t.filterText = strings.ToLower(strings.TrimSpace(filterText))
	t.loadTags()
}

// matchesFilter reports whether the tag name, its type or any of its member
// paths contain the filter text.
func (t *BrowserTab) matchesFilter(tg *tag.Tag) bool {
	if t.filterText == "" {
		return true
	}
	if strings.Contains(strings.ToLower(tg.Name().String()), t.filterText) ||
		strings.Contains(strings.ToLower(tg.DataType().Name()), t.filterText) {
		return true
	}
	for _, name := range tg.TagNames() {
		if strings.Contains(strings.ToLower(name.String()), t.filterText) {
			return true
		}
	}
	return false
}

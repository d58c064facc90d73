package application

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/custedit/internal/records"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func() tea.Cmd
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

// action identifies a menu command handled by Model.Update.
type action int

const (
	actionImport action = iota
	actionAdd
	actionTogglePage
	actionClearSelection
	actionExport
	actionSend
	actionQuit
)

// actionMsg is emitted when a menu item runs.
type actionMsg action

// pageSizeMsg is emitted by the page size submenu.
type pageSizeMsg int

func emit(msg tea.Msg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return msg }
	}
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == "Back" {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

func buildMenuTree() *Menu {

	/* Submenus */
	selection := &Menu{
		Title: "Selection",
		Items: []MenuItem{
			{Label: "Select / unselect page", Action: emit(actionMsg(actionTogglePage))},
			{Label: "Clear selection", Action: emit(actionMsg(actionClearSelection))},
			{Label: "Back"},
		},
	}

	output := &Menu{
		Title: "Selected rows",
		Items: []MenuItem{
			{Label: "Export to " + records.ExportFileName, Action: emit(actionMsg(actionExport))},
			{Label: "Send", Action: emit(actionMsg(actionSend))},
			{Label: "Back"},
		},
	}

	/* Root Menu */
	root := &Menu{
		Title: "Actions",
		Items: []MenuItem{
			{Label: "Import CSV file", Action: emit(actionMsg(actionImport))},
			{Label: "Add entry", Action: emit(actionMsg(actionAdd))},
			{Label: "Selection ->", Submenu: selection},
			{Label: "Selected rows ->", Submenu: output},
			{Label: "Rows per page ->", Submenu: loadPageSizes()},
			{Label: "Quit", Action: emit(actionMsg(actionQuit))},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	LOAD MENUS
---------------------------------------- */

func loadPageSizes() *Menu {
	items := make([]MenuItem, 0, len(records.PageSizes)+1)
	for _, size := range records.PageSizes {
		items = append(items, MenuItem{
			Label:  strconv.Itoa(size),
			Action: emit(pageSizeMsg(size)),
		})
	}
	items = append(items, MenuItem{Label: "Back"})

	return &Menu{
		Title: "Rows per page",
		Items: items,
	}
}

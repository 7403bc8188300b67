package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle   key.Binding
	Add      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Search   key.Binding
	Filter   key.Binding
	Sort     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Clear    key.Binding
	Tags     key.Binding
	Reload   key.Binding
	Logout   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→", "next page")),
		Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
		Tags:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tags")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Edit, k.Delete, k.Search, k.Filter, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Add, k.Edit, k.Delete},
		{k.Search, k.Filter, k.Sort, k.Clear},
		{k.PrevPage, k.NextPage, k.Reload, k.Tags},
		{k.Logout, k.Help, k.Quit},
	}
}

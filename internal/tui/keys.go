package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up, Down, NextTab, PrevTab key.Binding
	Toggle, Add, Delete, Reset key.Binding
	Share, Leave, Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "위")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "아래")),
		NextTab: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "다음 탭")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "이전 탭")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "체크")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "추가")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "삭제")),
		Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "초기화")),
		Share:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "공유")),
		Leave:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "나가기")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "종료")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Delete, k.NextTab, k.Reset, k.Share, k.Leave, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab},
		{k.Toggle, k.Add, k.Delete, k.Reset},
		{k.Share, k.Leave, k.Quit},
	}
}

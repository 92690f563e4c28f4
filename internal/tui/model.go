// Package tui is the interactive terminal view of a room's shopping list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/knc219-a11y/pension-list/internal/catalog"
	"github.com/knc219-a11y/pension-list/internal/model"
	"github.com/knc219-a11y/pension-list/internal/room"
)

// Rooms is the room session as the view sees it.
type Rooms interface {
	Join(code string) bool
	Leave()
	Suggestion() string
	State() room.State
}

// Items is the live projection.
type Items interface {
	Items() []model.Item
	Loading() bool
}

// Mutations are the user actions that write to the backend.
type Mutations interface {
	AddItem(ctx context.Context, text string, filter model.Filter) error
	ToggleItem(ctx context.Context, id string, current bool) error
	DeleteItem(ctx context.Context, id string) error
	ResetRoom(ctx context.Context, current []model.Item) error
}

type Deps struct {
	Rooms     Rooms
	Items     Items
	Mutations Mutations
	// Identity reports whether sign-in has finished.
	Identity func() bool
}

// itemsChangedMsg is sent whenever the syncer's projection or loading flag
// changes.
type itemsChangedMsg struct{}

// identityMsg reports the outcome of sign-in.
type identityMsg struct{ err error }

type mutationDoneMsg struct {
	op  string
	err error
}

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmDelete
	confirmReset
	confirmLeave
)

var confirmPrompts = map[confirmKind]string{
	confirmDelete: "정말 삭제할까요?",
	confirmReset:  "초기화할까요?",
	confirmLeave:  "방에서 나갈까요?",
}

type Model struct {
	deps Deps
	ctx  context.Context
	keys keyMap
	help help.Model

	roomInput textinput.Model
	itemInput textinput.Model
	adding    bool

	filter  model.Filter
	cursor  int
	items   []model.Item
	loading bool

	confirm   confirmKind
	confirmID string
	sharing   bool
	status    string
	errText   string
	authError string
}

func New(ctx context.Context, deps Deps) Model {
	roomInput := textinput.New()
	roomInput.Prompt = "방 이름 > "
	roomInput.Placeholder = "예: 강릉-펜션"
	roomInput.CharLimit = 60
	roomInput.SetValue(deps.Rooms.Suggestion())
	roomInput.Focus()

	itemInput := textinput.New()
	itemInput.Prompt = "> "
	itemInput.Placeholder = "추가할 물품"
	itemInput.CharLimit = 100

	m := Model{
		deps:      deps,
		ctx:       ctx,
		keys:      defaultKeys(),
		help:      help.New(),
		roomInput: roomInput,
		itemInput: itemInput,
		filter:    model.FilterAll,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) refresh() {
	m.items = m.deps.Items.Items()
	m.loading = m.deps.Items.Loading()
	m.clampCursor()
}

func (m *Model) visible() []model.Item {
	return m.filter.Apply(m.items)
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (model.Item, bool) {
	vis := m.visible()
	if m.cursor < 0 || m.cursor >= len(vis) {
		return model.Item{}, false
	}
	return vis[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case itemsChangedMsg:
		m.refresh()
		return m, nil
	case identityMsg:
		if msg.err != nil {
			m.authError = msg.err.Error()
		}
		return m, nil
	case mutationDoneMsg:
		if msg.err != nil {
			m.errText = fmt.Sprintf("%s 실패: %v", msg.op, msg.err)
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	if !m.deps.Rooms.State().Joined {
		return m.updateJoin(msg)
	}
	if m.confirm != confirmNone {
		return m.updateConfirm(msg)
	}
	if m.adding {
		return m.updateAdding(msg)
	}
	return m.updateList(msg)
}

func (m Model) updateJoin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return m, tea.Quit
		case "enter":
			if !m.deps.Rooms.Join(m.roomInput.Value()) {
				m.errText = "방 이름을 입력해 주세요"
				return m, nil
			}
			m.errText, m.status = "", ""
			m.filter, m.cursor = model.FilterAll, 0
			m.roomInput.Blur()
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.roomInput, cmd = m.roomInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	kind, id := m.confirm, m.confirmID
	switch strings.ToLower(k.String()) {
	case "y":
		m.confirm, m.confirmID = confirmNone, ""
		switch kind {
		case confirmDelete:
			return m, m.mutate("삭제", func(ctx context.Context) error { return m.deps.Mutations.DeleteItem(ctx, id) })
		case confirmReset:
			current := m.items
			return m, m.mutate("초기화", func(ctx context.Context) error { return m.deps.Mutations.ResetRoom(ctx, current) })
		case confirmLeave:
			m.deps.Rooms.Leave()
			m.roomInput.SetValue("")
			m.roomInput.Focus()
			m.items, m.cursor, m.sharing = nil, 0, false
			return m, textinput.Blink
		}
	case "n", "esc":
		m.confirm, m.confirmID = confirmNone, ""
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.adding = false
			m.itemInput.SetValue("")
			m.itemInput.Blur()
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.itemInput.Value())
			if text == "" {
				return m, nil
			}
			filter := m.filter
			m.itemInput.SetValue("")
			return m, m.mutate("추가", func(ctx context.Context) error { return m.deps.Mutations.AddItem(ctx, text, filter) })
		}
	}
	var cmd tea.Cmd
	m.itemInput, cmd = m.itemInput.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.sharing = false
	m.errText = ""
	switch {
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(k, m.keys.Down):
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case key.Matches(k, m.keys.NextTab):
		m.filter = shiftFilter(m.filter, 1)
		m.cursor = 0
	case key.Matches(k, m.keys.PrevTab):
		m.filter = shiftFilter(m.filter, -1)
		m.cursor = 0
	case key.Matches(k, m.keys.Toggle):
		if it, ok := m.selected(); ok {
			return m, m.mutate("체크", func(ctx context.Context) error {
				return m.deps.Mutations.ToggleItem(ctx, it.ID, it.Checked)
			})
		}
	case key.Matches(k, m.keys.Add):
		m.adding = true
		m.itemInput.SetValue("")
		m.itemInput.Focus()
		return m, textinput.Blink
	case key.Matches(k, m.keys.Delete):
		if it, ok := m.selected(); ok {
			m.confirm, m.confirmID = confirmDelete, it.ID
		}
	case key.Matches(k, m.keys.Reset):
		m.confirm = confirmReset
	case key.Matches(k, m.keys.Share):
		m.sharing = true
	case key.Matches(k, m.keys.Leave):
		m.confirm = confirmLeave
	}
	return m, nil
}

// mutate runs op off the update loop and reports its outcome.
func (m Model) mutate(label string, op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := op(ctx)
		if errors.Is(err, model.ErrEmptyText) {
			err = nil
		}
		return mutationDoneMsg{op: label, err: err}
	}
}

func shiftFilter(f model.Filter, delta int) model.Filter {
	idx := 0
	for i, candidate := range model.Filters {
		if candidate == f {
			idx = i
			break
		}
	}
	n := len(model.Filters)
	return model.Filters[((idx+delta)%n+n)%n]
}

func (m Model) View() string {
	st := m.deps.Rooms.State()
	if !st.Joined {
		return m.joinView()
	}

	var b strings.Builder
	checked, _ := model.Progress(m.items)
	b.WriteString(titleStyle.Render("🏕️ 펜션 장보기") + "  " + accentStyle.Render("["+st.RoomCode+"]") + "\n")
	b.WriteString(ProgressBar(checked, len(m.items), 28) + mutedStyle.Render(fmt.Sprintf("  %d / %d", checked, len(m.items))) + "\n\n")
	b.WriteString(m.tabsView() + "\n\n")

	switch {
	case m.loading:
		b.WriteString(mutedStyle.Render("불러오는 중...") + "\n")
	case len(m.visible()) == 0:
		b.WriteString(mutedStyle.Render("목록이 비어있어요.") + "\n")
	default:
		for i, it := range m.visible() {
			b.WriteString(m.itemLine(it, i == m.cursor) + "\n")
		}
	}

	if m.adding {
		p := catalog.PresentationFor(m.filter)
		label := p.Icon + " " + p.Label + "에 추가"
		if m.filter == model.FilterAll {
			label = "기타에 추가"
		}
		b.WriteString("\n" + promptStyle.Render(label+"\n"+m.itemInput.View()) + "\n")
	}
	if m.confirm != confirmNone {
		b.WriteString("\n" + errorStyle.Render(confirmPrompts[m.confirm]) + mutedStyle.Render(" (y/n)") + "\n")
	}
	if m.sharing {
		b.WriteString("\n" + promptStyle.Render(room.ShareText(st.RoomCode)) + "\n")
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return panelStyle.Render(b.String())
}

func (m Model) joinView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🏕️ 펜션 장보기") + "\n\n")
	b.WriteString("같이 장볼 방 이름을 입력하세요.\n\n")
	b.WriteString(m.roomInput.View() + "\n")
	if m.authError != "" {
		b.WriteString("\n" + errorStyle.Render("로그인 실패: "+m.authError) + "\n")
	} else if m.deps.Identity != nil && !m.deps.Identity() {
		b.WriteString("\n" + mutedStyle.Render("연결 중...") + "\n")
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("enter 입장 · esc 종료"))
	return panelStyle.Render(b.String())
}

func (m Model) tabsView() string {
	tabs := make([]string, 0, len(model.Filters))
	for _, f := range model.Filters {
		p := catalog.PresentationFor(f)
		label := p.Icon + " " + p.Label
		if f == m.filter {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, "")
}

func (m Model) itemLine(it model.Item, selected bool) string {
	box := mutedStyle.Render(boxUnchecked)
	text := it.Text
	if it.Checked {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	icon := catalog.PresentationFor(model.Filter(it.Category)).Icon
	prefix := "  "
	if selected {
		prefix = selectedStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s %s %s", prefix, box, icon, text)
}

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Program wraps the bubbletea program so background components can push
// refreshes into the view.
type Program struct {
	p *tea.Program
}

func NewProgram(ctx context.Context, deps Deps) *Program {
	return &Program{p: tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))}
}

// ItemsChanged tells the view to re-read the projection. It never blocks:
// joins and leaves run inside Update and notify synchronously.
func (p *Program) ItemsChanged() {
	go p.p.Send(itemsChangedMsg{})
}

// IdentityResolved reports the outcome of sign-in.
func (p *Program) IdentityResolved(err error) {
	go p.p.Send(identityMsg{err: err})
}

// Run blocks until the user quits.
func (p *Program) Run() error {
	_, err := p.p.Run()
	return err
}

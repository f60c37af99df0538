package menus

import (
	"fmt"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
)

// Registry maps every menu to its handler
type Registry struct {
	handlers map[session.Menu]Handler
}

// NewRegistry fails unless every known menu has exactly one handler
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[session.Menu]Handler, len(handlers))}
	for _, h := range handlers {
		menu := h.Menu()
		if !menu.Valid() {
			return nil, fmt.Errorf("handler registered for unknown menu %q", menu)
		}
		if _, dup := r.handlers[menu]; dup {
			return nil, fmt.Errorf("duplicate handler for menu %q", menu)
		}
		r.handlers[menu] = h
	}
	for _, menu := range session.AllMenus() {
		if _, ok := r.handlers[menu]; !ok {
			return nil, fmt.Errorf("no handler for menu %q", menu)
		}
	}
	return r, nil
}

// NewDefaultRegistry wires the standard handler set
func NewDefaultRegistry(deps *Deps) (*Registry, error) {
	return NewRegistry(
		&MainMenuHandler{deps: deps},
		&SendMoneyHandler{deps: deps},
		&CheckBalanceHandler{deps: deps},
		&WithdrawHandler{deps: deps},
		&RegisterHandler{deps: deps},
		&LanguageHandler{deps: deps},
	)
}

// Lookup returns the handler for menu, falling back to the main menu
func (r *Registry) Lookup(menu session.Menu) Handler {
	if h, ok := r.handlers[menu]; ok {
		return h
	}
	return r.handlers[session.MenuMain]
}

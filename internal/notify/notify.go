// Package notify defines how the core asks the user for confirmation and
// tells them about outcomes. The core only calls out; it never waits for an answer.
package notify

import "github.com/pamdev00/price/internal/undo"

// Request asks the user to confirm an action. OnAccept runs only if they accept.
type Request struct {
	Title    string
	Message  string
	Action   string
	Danger   bool
	OnAccept func()
}

// Confirmer asks for confirmation.
type Confirmer interface {
	Confirm(req Request)
}

// Notifier shows transient notices and undo offers.
type Notifier interface {
	Notice(msg string)
	OfferUndo(msg string, h undo.Handle)
}

// Discard drops every notice and declines every confirmation.
type Discard struct{}

func (Discard) Confirm(Request) {}

func (Discard) Notice(string) {}

func (Discard) OfferUndo(string, undo.Handle) {}

// AutoAccept accepts every confirmation immediately. Used where no one can be asked.
type AutoAccept struct{}

func (AutoAccept) Confirm(req Request) {
	if req.OnAccept != nil {
		req.OnAccept()
	}
}

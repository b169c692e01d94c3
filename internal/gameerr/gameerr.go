// Package gameerr defines the closed set of rejection kinds a player
// action can fail with. Every kind maps straight onto the type field
// of a custom-error event.
package gameerr

import (
	"errors"
	"fmt"
)

// Kind identifies why an action was rejected.
type Kind string

const (
	// InsufficientPlayers rejects starting a game below the minimum.
	InsufficientPlayers Kind = "InsufficientPlayers"
	// NotYourTurn rejects turn actions from a non-active player.
	NotYourTurn Kind = "NotYourTurn"
	// BadTiming rejects an action attempted in the wrong stage.
	BadTiming Kind = "BadTiming"
	// NotFound rejects references to cards, players or games that do
	// not exist where expected.
	NotFound Kind = "NotFound"
	// Forbidden rejects plays that break the card rules, round calls
	// with too high a hand, and joins past capacity.
	Forbidden Kind = "Forbidden"
	// Conflict rejects a join with a player id already in use.
	Conflict Kind = "Conflict"
)

// Error is a tagged action rejection. Rejections never carry partial
// state; validation runs before any write.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a rejection of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the rejection kind from err, or "Error" for
// anything that is not a tagged rejection.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return "Error"
}

// Is reports whether err is a rejection of the given kind.
func Is(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

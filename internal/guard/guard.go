// Package guard decides whether a command may run given the persisted auth
// marker. It only looks at the marker, never at the live session, so it
// is cheap and may be stale; protected commands still validate the session.
package guard

import (
	"errors"
	"strings"
)

// Annotation is the cobra annotation key carrying a command's Kind.
const Annotation = "hos/route"

// Kind classifies a command.
type Kind string

const (
	// Public commands run regardless of login state.
	Public Kind = "public"
	// Protected commands require a logged-in user.
	Protected Kind = "protected"
	// AuthOnly commands (login, register) make no sense when logged in.
	AuthOnly Kind = "auth-only"
)

// Decision is the outcome of Decide.
type Decision int

const (
	Allow Decision = iota
	Deny
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// ErrLoginRequired is returned for protected commands without a valid marker.
var ErrLoginRequired = errors.New("you are not logged in, run \"hos login\" first")

// ValidMarker reports whether marker looks like a token. The literal
// "undefined" is what a broken client writes for a missing token.
func ValidMarker(marker string) bool {
	m := strings.TrimSpace(marker)
	return m != "" && m != "undefined"
}

// Decide returns what to do with a command of kind k given the marker.
func Decide(k Kind, marker string) Decision {
	valid := ValidMarker(marker)
	switch k {
	case Protected:
		if !valid {
			return Deny
		}
	case AuthOnly:
		if valid {
			return Redirect
		}
	}
	return Allow
}

// KindOf reads the Kind from command annotations. Unannotated commands are public.
func KindOf(annotations map[string]string) Kind {
	switch Kind(annotations[Annotation]) {
	case Protected:
		return Protected
	case AuthOnly:
		return AuthOnly
	default:
		return Public
	}
}

// Annotate returns the annotation map for k, for use in cobra.Command literals.
func Annotate(k Kind) map[string]string {
	return map[string]string{Annotation: string(k)}
}

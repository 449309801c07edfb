package rbac

import (
	"fmt"
	"strings"
)

// Action is one of the eleven grantable operations on a resource.
type Action int

const (
	ActionCreate Action = iota
	ActionViewAll
	ActionViewAssigned
	ActionViewOwn
	ActionEditAll
	ActionEditAssigned
	ActionEditOwn
	ActionDeleteAll
	ActionDeleteAssigned
	ActionDeleteOwn
	ActionExport

	numActions = iota
)

var actionNames = [numActions]string{
	ActionCreate:         "create",
	ActionViewAll:        "view_all",
	ActionViewAssigned:   "view_assigned",
	ActionViewOwn:        "view_own",
	ActionEditAll:        "edit_all",
	ActionEditAssigned:   "edit_assigned",
	ActionEditOwn:        "edit_own",
	ActionDeleteAll:      "delete_all",
	ActionDeleteAssigned: "delete_assigned",
	ActionDeleteOwn:      "delete_own",
	ActionExport:         "export",
}

// Actions returns every action in declaration order.
func Actions() []Action {
	out := make([]Action, numActions)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}

// Valid reports whether a is one of the enumerated actions.
func (a Action) Valid() bool {
	return a >= 0 && a < numActions
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Column is the role_permissions column holding the flag for a.
func (a Action) Column() string {
	return "can_" + a.String()
}

// ParseAction maps a wire name such as "edit_own" to its Action.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrValidation, name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: action %d out of range", ErrValidation, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ActionSet is a fixed-size set of action flags.
type ActionSet [numActions]bool

// Has reports whether a is set.
func (s ActionSet) Has(a Action) bool {
	return a.Valid() && s[a]
}

// Union returns the flags set in either s or other.
func (s ActionSet) Union(other ActionSet) ActionSet {
	for i := range s {
		s[i] = s[i] || other[i]
	}
	return s
}

// List returns the set actions in declaration order.
func (s ActionSet) List() []Action {
	var out []Action
	for i, ok := range s {
		if ok {
			out = append(out, Action(i))
		}
	}
	return out
}

package domain

import "strings"

// ActionKind is a recordable interaction. The backend exposes one endpoint per kind.
type ActionKind string

const (
	ActionView     ActionKind = "view"
	ActionLike     ActionKind = "like"
	ActionPurchase ActionKind = "purchase"
)

// ActionKinds lists every kind in display order.
var ActionKinds = []ActionKind{ActionView, ActionLike, ActionPurchase}

func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionView, ActionLike, ActionPurchase:
		return k, nil
	default:
		return "", ErrInvalidActionKind
	}
}

// Endpoint is the backend path that records this kind.
func (k ActionKind) Endpoint() string {
	return "/" + string(k)
}

// SuccessLabel is the transient text shown while the key is succeeded.
func (k ActionKind) SuccessLabel() string {
	switch k {
	case ActionView:
		return "Viewed!"
	case ActionLike:
		return "Liked!"
	case ActionPurchase:
		return "Purchased!"
	default:
		return ""
	}
}

// ButtonLabel is the idle button text.
func (k ActionKind) ButtonLabel() string {
	switch k {
	case ActionView:
		return "View"
	case ActionLike:
		return "Like"
	case ActionPurchase:
		return "Purchase"
	default:
		return ""
	}
}

type ActionStatus string

const (
	StatusIdle      ActionStatus = "idle"
	StatusPending   ActionStatus = "pending"
	StatusSucceeded ActionStatus = "succeeded"
	StatusFailed    ActionStatus = "failed"
)

// ActionState is the UI feedback state of one (product, kind) key.
type ActionState struct {
	ProductID  int          `json:"product_id"`
	Kind       ActionKind   `json:"kind"`
	Status     ActionStatus `json:"status"`
	Label      string       `json:"label"`
	Disabled   bool         `json:"disabled"`
	Generation uint64       `json:"generation"`
}

// NewActionState builds the display state for a key in the given status.
func NewActionState(productID int, kind ActionKind, status ActionStatus, gen uint64) ActionState {
	st := ActionState{
		ProductID:  productID,
		Kind:       kind,
		Status:     status,
		Label:      kind.ButtonLabel(),
		Generation: gen,
	}
	switch status {
	case StatusPending:
		st.Label = "..."
		st.Disabled = true
	case StatusSucceeded:
		st.Label = kind.SuccessLabel()
	}
	return st
}

// CheckActionGate blocks identity-gated actions before any network call.
func CheckActionGate(id Identity) error {
	if id.IsZero() {
		return ErrLoginRequired
	}
	return nil
}

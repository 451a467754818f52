package session

import (
	"errors"
	"fmt"
)

// ErrRuleViolation is the common ancestor of all illegal-player-action
// errors. They are rejected at the boundary with no state mutation, so
// handlers can map anything matching this sentinel to a 400.
var ErrRuleViolation = errors.New("rule violation")

// InvalidCardError reports a play referencing a card that is not in the
// player's hand.
type InvalidCardError struct {
	CardID string
}

func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("card %q is not in hand", e.CardID)
}

func (e *InvalidCardError) Unwrap() error { return ErrRuleViolation }

// InsufficientResourceError reports a card whose cost exceeds the
// current resource balance.
type InsufficientResourceError struct {
	Resource string
	Need     int
	Have     int
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("insufficient %s: need %d, have %d", e.Resource, e.Need, e.Have)
}

func (e *InsufficientResourceError) Unwrap() error { return ErrRuleViolation }

// RuleViolationError covers the remaining illegal actions: wrong
// discard-down count, acting on an ended conversation, and similar.
type RuleViolationError struct {
	Reason string
}

func (e *RuleViolationError) Error() string { return e.Reason }

func (e *RuleViolationError) Unwrap() error { return ErrRuleViolation }

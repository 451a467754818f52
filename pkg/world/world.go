// Package world defines the world-state collaborator consumed by the
// effect engine and the scene machine. The core never holds its own
// copy of world entities; it reads and writes through these interfaces.
package world

import "errors"

// ErrNotFound is wrapped by operations whose target entity does not
// exist. Callers resolving effect branches translate it into a
// precondition failure.
var ErrNotFound = errors.New("entity not found")

// ErrConflict is wrapped when a mutation's target is already in its
// requested state (location id already claimed, item already held,
// route already unlocked). Informational reveals are the exception and
// stay idempotent.
var ErrConflict = errors.New("state conflict")

// Reader is the query surface shared by the live world and transactions.
type Reader interface {
	NPCLocation(npcID string) (string, error)
	NPCsAt(locationID string) ([]string, error)
	NPCExists(npcID string) bool
	LocationExists(locationID string) bool
	ItemHeld(itemID string) bool
	RouteUnlocked(name string) bool
	InformationKnown(infoID string) bool
	ObligationOpen(obligationID string) bool
	LetterQueue() []string
	TokenBalance(npcID, tokenType string) int
	Clock() int
	StateValue(key string) string
}

// Tx is a staged set of world mutations. Reads observe earlier writes
// in the same transaction. Nothing is visible to the live world until
// Commit; Rollback discards everything. A Tx is not safe for concurrent
// use; turn processing is sequential.
type Tx interface {
	Reader

	CreateLocation(locationID string, transient bool) error
	DestroyLocation(locationID string) error
	UnlockLocation(locationID string) error

	UnlockNPC(npcID string) error
	RemoveNPC(npcID string) error
	MoveNPC(npcID, locationID string) error

	GrantItem(itemID string) error
	RemoveItem(itemID string) error

	UnlockRoute(name string) error

	CreateObligation(obligationID, npcID string) error
	ResolveObligation(obligationID string) error

	AddLetter(letterID string) error
	RemoveLetter(letterID string) error
	SwapLetters(a, b string) error
	ReorderLetter(letterID string, delta int) error
	ExtendDeadline(letterID string, hours int) error

	// AdjustTokens changes a connection-token balance. A spend that
	// would drive the balance negative is an error.
	AdjustTokens(npcID, tokenType string, delta int) error

	GainInformation(infoID string) error   // idempotent
	RevealInformation(infoID string) error // idempotent

	AdvanceTime(hours int) error
	SetState(key, value string) error
	OpenNegotiation(npcID string) error

	Commit()
	Rollback()
}

// World is the collaborator handed to the effect engine and the scene
// machine. All mutation goes through a Tx so that a multi-effect branch
// can be applied all-or-nothing.
type World interface {
	Reader
	Begin() Tx
}

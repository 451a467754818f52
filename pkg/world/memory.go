package world

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type npcRecord struct {
	LocationID string `json:"location_id"`
	Unlocked   bool   `json:"unlocked"`
}

type locationRecord struct {
	Transient bool `json:"transient,omitempty"`
	Unlocked  bool `json:"unlocked"`
}

type letterRecord struct {
	ID       string `json:"id"`
	Deadline int    `json:"deadline"` // in-game hours remaining
}

type obligationRecord struct {
	NpcID string `json:"npc_id"`
	Open  bool   `json:"open"`
}

// worldData is the full mutable state. It is cloned into transactions
// and swapped back on commit.
type worldData struct {
	NPCs         map[string]npcRecord        `json:"npcs"`
	Locations    map[string]locationRecord   `json:"locations"`
	Items        map[string]bool             `json:"items"`
	Routes       map[string]bool             `json:"routes"`
	Known        map[string]bool             `json:"known"`
	Revealed     map[string]bool             `json:"revealed"`
	Obligations  map[string]obligationRecord `json:"obligations"`
	Tokens       map[string]int              `json:"tokens"` // npcID + "/" + tokenType
	Letters      []letterRecord              `json:"letters"`
	Negotiations map[string]bool             `json:"negotiations"`
	Vars         map[string]string           `json:"vars"`
	Hour         int                         `json:"hour"`
}

func newWorldData() *worldData {
	return &worldData{
		NPCs:         make(map[string]npcRecord),
		Locations:    make(map[string]locationRecord),
		Items:        make(map[string]bool),
		Routes:       make(map[string]bool),
		Known:        make(map[string]bool),
		Revealed:     make(map[string]bool),
		Obligations:  make(map[string]obligationRecord),
		Tokens:       make(map[string]int),
		Negotiations: make(map[string]bool),
		Vars:         make(map[string]string),
	}
}

func tokenKey(npcID, tokenType string) string { return npcID + "/" + tokenType }

func (d *worldData) clone() *worldData {
	return &worldData{
		NPCs:         maps.Clone(d.NPCs),
		Locations:    maps.Clone(d.Locations),
		Items:        maps.Clone(d.Items),
		Routes:       maps.Clone(d.Routes),
		Known:        maps.Clone(d.Known),
		Revealed:     maps.Clone(d.Revealed),
		Obligations:  maps.Clone(d.Obligations),
		Tokens:       maps.Clone(d.Tokens),
		Letters:      slices.Clone(d.Letters),
		Negotiations: maps.Clone(d.Negotiations),
		Vars:         maps.Clone(d.Vars),
		Hour:         d.Hour,
	}
}

// GameWorld is the in-memory World implementation. A single mutex
// serializes writes; commits replace the data wholesale, which is
// sufficient because turn and situation processing is sequential.
type GameWorld struct {
	mu sync.RWMutex
	d  *worldData
}

func NewGameWorld() *GameWorld {
	return &GameWorld{d: newWorldData()}
}

var _ World = (*GameWorld)(nil)

// Seed helpers used by world setup and tests.

func (w *GameWorld) AddNPC(npcID, locationID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.d.NPCs[npcID] = npcRecord{LocationID: locationID, Unlocked: true}
}

func (w *GameWorld) AddLocation(locationID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.d.Locations[locationID] = locationRecord{Unlocked: true}
}

func (w *GameWorld) QueueLetter(letterID string, deadline int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.d.Letters = append(w.d.Letters, letterRecord{ID: letterID, Deadline: deadline})
}

func (w *GameWorld) Begin() Tx {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &memTx{w: w, d: w.d.clone()}
}

func (w *GameWorld) NPCLocation(npcID string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.npcLocation(npcID)
}

func (w *GameWorld) NPCsAt(locationID string) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.npcsAt(locationID)
}

func (w *GameWorld) NPCExists(npcID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.d.NPCs[npcID]
	return ok
}

func (w *GameWorld) LocationExists(locationID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.d.Locations[locationID]
	return ok
}

func (w *GameWorld) ItemHeld(itemID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Items[itemID]
}

func (w *GameWorld) RouteUnlocked(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Routes[name]
}

func (w *GameWorld) InformationKnown(infoID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Known[infoID]
}

func (w *GameWorld) ObligationOpen(obligationID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ob, ok := w.d.Obligations[obligationID]
	return ok && ob.Open
}

func (w *GameWorld) LetterQueue() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.letterQueue()
}

func (w *GameWorld) TokenBalance(npcID, tokenType string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Tokens[tokenKey(npcID, tokenType)]
}

func (w *GameWorld) Clock() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Hour
}

func (w *GameWorld) StateValue(key string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.d.Vars[key]
}

// MarshalJSON serializes the full world data for save state.
func (w *GameWorld) MarshalJSON() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return json.Marshal(w.d)
}

// UnmarshalJSON restores world data from save state.
func (w *GameWorld) UnmarshalJSON(b []byte) error {
	d := newWorldData()
	if err := json.Unmarshal(b, d); err != nil {
		return err
	}
	w.mu.Lock()
	w.d = d
	w.mu.Unlock()
	return nil
}

// memTx applies mutations to a private clone of the world data.
type memTx struct {
	w    *GameWorld
	d    *worldData
	done bool
}

var _ Tx = (*memTx)(nil)

func (t *memTx) Commit() {
	if t.done {
		return
	}
	t.done = true
	t.w.mu.Lock()
	t.w.d = t.d
	t.w.mu.Unlock()
}

func (t *memTx) Rollback() {
	t.done = true
}

func (t *memTx) NPCLocation(npcID string) (string, error) { return t.d.npcLocation(npcID) }

func (t *memTx) NPCsAt(locationID string) ([]string, error) { return t.d.npcsAt(locationID) }

func (t *memTx) NPCExists(npcID string) bool {
	_, ok := t.d.NPCs[npcID]
	return ok
}

func (t *memTx) LocationExists(locationID string) bool {
	_, ok := t.d.Locations[locationID]
	return ok
}

func (t *memTx) ItemHeld(itemID string) bool { return t.d.Items[itemID] }

func (t *memTx) RouteUnlocked(name string) bool { return t.d.Routes[name] }

func (t *memTx) InformationKnown(infoID string) bool { return t.d.Known[infoID] }

func (t *memTx) LetterQueue() []string { return t.d.letterQueue() }

func (t *memTx) Clock() int { return t.d.Hour }

func (t *memTx) StateValue(key string) string { return t.d.Vars[key] }

func (t *memTx) ObligationOpen(obligationID string) bool {
	ob, ok := t.d.Obligations[obligationID]
	return ok && ob.Open
}

func (t *memTx) CreateLocation(locationID string, transient bool) error {
	if _, ok := t.d.Locations[locationID]; ok {
		return fmt.Errorf("location %q: %w", locationID, ErrConflict)
	}
	t.d.Locations[locationID] = locationRecord{Transient: transient, Unlocked: true}
	return nil
}

func (t *memTx) DestroyLocation(locationID string) error {
	if _, ok := t.d.Locations[locationID]; !ok {
		return fmt.Errorf("location %q: %w", locationID, ErrNotFound)
	}
	delete(t.d.Locations, locationID)
	return nil
}

func (t *memTx) UnlockLocation(locationID string) error {
	loc, ok := t.d.Locations[locationID]
	if !ok {
		return fmt.Errorf("location %q: %w", locationID, ErrNotFound)
	}
	if loc.Unlocked {
		return fmt.Errorf("location %q already unlocked: %w", locationID, ErrConflict)
	}
	loc.Unlocked = true
	t.d.Locations[locationID] = loc
	return nil
}

func (t *memTx) UnlockNPC(npcID string) error {
	npc, ok := t.d.NPCs[npcID]
	if !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	if npc.Unlocked {
		return fmt.Errorf("npc %q already unlocked: %w", npcID, ErrConflict)
	}
	npc.Unlocked = true
	t.d.NPCs[npcID] = npc
	return nil
}

func (t *memTx) RemoveNPC(npcID string) error {
	if _, ok := t.d.NPCs[npcID]; !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	delete(t.d.NPCs, npcID)
	return nil
}

func (t *memTx) MoveNPC(npcID, locationID string) error {
	npc, ok := t.d.NPCs[npcID]
	if !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	npc.LocationID = locationID
	t.d.NPCs[npcID] = npc
	return nil
}

func (t *memTx) GrantItem(itemID string) error {
	if t.d.Items[itemID] {
		return fmt.Errorf("item %q already held: %w", itemID, ErrConflict)
	}
	t.d.Items[itemID] = true
	return nil
}

func (t *memTx) RemoveItem(itemID string) error {
	if !t.d.Items[itemID] {
		return fmt.Errorf("item %q: %w", itemID, ErrNotFound)
	}
	delete(t.d.Items, itemID)
	return nil
}

func (t *memTx) UnlockRoute(name string) error {
	if t.d.Routes[name] {
		return fmt.Errorf("route %q already unlocked: %w", name, ErrConflict)
	}
	t.d.Routes[name] = true
	return nil
}

func (t *memTx) CreateObligation(obligationID, npcID string) error {
	if _, ok := t.d.Obligations[obligationID]; ok {
		return fmt.Errorf("obligation %q: %w", obligationID, ErrConflict)
	}
	if _, ok := t.d.NPCs[npcID]; !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	t.d.Obligations[obligationID] = obligationRecord{NpcID: npcID, Open: true}
	return nil
}

func (t *memTx) ResolveObligation(obligationID string) error {
	ob, ok := t.d.Obligations[obligationID]
	if !ok {
		return fmt.Errorf("obligation %q: %w", obligationID, ErrNotFound)
	}
	if !ob.Open {
		return fmt.Errorf("obligation %q already resolved: %w", obligationID, ErrConflict)
	}
	ob.Open = false
	t.d.Obligations[obligationID] = ob
	return nil
}

func (t *memTx) AddLetter(letterID string) error {
	if t.d.letterIndex(letterID) >= 0 {
		return fmt.Errorf("letter %q already queued: %w", letterID, ErrConflict)
	}
	t.d.Letters = append(t.d.Letters, letterRecord{ID: letterID})
	return nil
}

func (t *memTx) RemoveLetter(letterID string) error {
	i := t.d.letterIndex(letterID)
	if i < 0 {
		return fmt.Errorf("letter %q: %w", letterID, ErrNotFound)
	}
	t.d.Letters = slices.Delete(t.d.Letters, i, i+1)
	return nil
}

func (t *memTx) SwapLetters(a, b string) error {
	i, j := t.d.letterIndex(a), t.d.letterIndex(b)
	if i < 0 {
		return fmt.Errorf("letter %q: %w", a, ErrNotFound)
	}
	if j < 0 {
		return fmt.Errorf("letter %q: %w", b, ErrNotFound)
	}
	t.d.Letters[i], t.d.Letters[j] = t.d.Letters[j], t.d.Letters[i]
	return nil
}

func (t *memTx) ReorderLetter(letterID string, delta int) error {
	i := t.d.letterIndex(letterID)
	if i < 0 {
		return fmt.Errorf("letter %q: %w", letterID, ErrNotFound)
	}
	j := i + delta
	if j < 0 {
		j = 0
	}
	if j > len(t.d.Letters)-1 {
		j = len(t.d.Letters) - 1
	}
	rec := t.d.Letters[i]
	t.d.Letters = slices.Delete(t.d.Letters, i, i+1)
	t.d.Letters = slices.Insert(t.d.Letters, j, rec)
	return nil
}

func (t *memTx) ExtendDeadline(letterID string, hours int) error {
	i := t.d.letterIndex(letterID)
	if i < 0 {
		return fmt.Errorf("letter %q: %w", letterID, ErrNotFound)
	}
	t.d.Letters[i].Deadline += hours
	return nil
}

func (t *memTx) TokenBalance(npcID, tokenType string) int {
	return t.d.Tokens[tokenKey(npcID, tokenType)]
}

func (t *memTx) AdjustTokens(npcID, tokenType string, delta int) error {
	if _, ok := t.d.NPCs[npcID]; !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	key := tokenKey(npcID, tokenType)
	next := t.d.Tokens[key] + delta
	if next < 0 {
		return fmt.Errorf("%s tokens with %s would go negative: %w", tokenType, npcID, ErrConflict)
	}
	t.d.Tokens[key] = next
	return nil
}

func (t *memTx) GainInformation(infoID string) error {
	t.d.Known[infoID] = true
	return nil
}

func (t *memTx) RevealInformation(infoID string) error {
	// Re-revealing is a no-op, not an error.
	t.d.Known[infoID] = true
	t.d.Revealed[infoID] = true
	return nil
}

func (t *memTx) AdvanceTime(hours int) error {
	if hours < 0 {
		return fmt.Errorf("time cannot move backwards: %w", ErrConflict)
	}
	t.d.Hour += hours
	return nil
}

func (t *memTx) SetState(key, value string) error {
	t.d.Vars[key] = value
	return nil
}

func (t *memTx) OpenNegotiation(npcID string) error {
	if _, ok := t.d.NPCs[npcID]; !ok {
		return fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	if t.d.Negotiations[npcID] {
		return fmt.Errorf("negotiation with %q already open: %w", npcID, ErrConflict)
	}
	t.d.Negotiations[npcID] = true
	return nil
}

func (d *worldData) npcLocation(npcID string) (string, error) {
	npc, ok := d.NPCs[npcID]
	if !ok {
		return "", fmt.Errorf("npc %q: %w", npcID, ErrNotFound)
	}
	return npc.LocationID, nil
}

func (d *worldData) npcsAt(locationID string) ([]string, error) {
	if _, ok := d.Locations[locationID]; !ok {
		return nil, fmt.Errorf("location %q: %w", locationID, ErrNotFound)
	}
	var out []string
	for id, npc := range d.NPCs {
		if npc.LocationID == locationID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (d *worldData) letterQueue() []string {
	out := make([]string, len(d.Letters))
	for i, l := range d.Letters {
		out[i] = l.ID
	}
	return out
}

func (d *worldData) letterIndex(letterID string) int {
	for i, l := range d.Letters {
		if l.ID == letterID {
			return i
		}
	}
	return -1
}

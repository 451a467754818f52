package card

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EffectKind tags one mechanical consequence variant. The set is closed:
// the effect resolver dispatches exhaustively over these kinds, which is
// what makes all-or-nothing branch application enforceable.
type EffectKind string

const (
	// Resource pool deltas. Amount may be negative.
	KindInitiative EffectKind = "initiative"
	KindMomentum   EffectKind = "momentum"
	KindDoubt      EffectKind = "doubt"
	KindCadence    EffectKind = "cadence"

	// Connection token economy.
	KindTokenGain  EffectKind = "token_gain"
	KindTokenSpend EffectKind = "token_spend"

	// Letter queue manipulation.
	KindLetterReorder  EffectKind = "letter_reorder"
	KindLetterSwap     EffectKind = "letter_swap"
	KindLetterRemove   EffectKind = "letter_remove"
	KindLetterAdd      EffectKind = "letter_add"
	KindDeadlineExtend EffectKind = "deadline_extend"

	// Knowledge.
	KindInformationGain   EffectKind = "information_gain"
	KindInformationReveal EffectKind = "information_reveal"

	// World access and obligations.
	KindObligationCreate EffectKind = "obligation_create"
	KindRouteUnlock      EffectKind = "route_unlock"
	KindNpcUnlock        EffectKind = "npc_unlock"
	KindLocationUnlock   EffectKind = "location_unlock"
	KindLocationCreate   EffectKind = "location_create"
	KindItemGrant        EffectKind = "item_grant"
	KindItemRemove       EffectKind = "item_remove"

	// Misc world state.
	KindTimePassage     EffectKind = "time_passage"
	KindStateChange     EffectKind = "state_change"
	KindNegotiationOpen EffectKind = "negotiation_open"
)

// kindOrder fixes the application order when an effect list is authored
// as a JSON mapping (mappings are unordered; branch application must not
// be). Spends and removals resolve before gains so that a branch cannot
// accidentally fund its own spend.
var kindOrder = []EffectKind{
	KindTokenSpend,
	KindItemRemove,
	KindLetterRemove,
	KindInitiative,
	KindMomentum,
	KindDoubt,
	KindCadence,
	KindTokenGain,
	KindLetterAdd,
	KindLetterReorder,
	KindLetterSwap,
	KindDeadlineExtend,
	KindInformationGain,
	KindInformationReveal,
	KindObligationCreate,
	KindRouteUnlock,
	KindNpcUnlock,
	KindLocationCreate,
	KindLocationUnlock,
	KindItemGrant,
	KindTimePassage,
	KindStateChange,
	KindNegotiationOpen,
}

var kindRank = func() map[EffectKind]int {
	m := make(map[EffectKind]int, len(kindOrder))
	for i, k := range kindOrder {
		m[k] = i
	}
	return m
}()

// KnownKind reports whether k is part of the closed variant set.
func KnownKind(k EffectKind) bool {
	_, ok := kindRank[k]
	return ok
}

// Effect is one tagged mechanical consequence. Payload fields reference
// world entities by id; display text is always derived from the variant,
// never stored here.
type Effect struct {
	Kind EffectKind `json:"kind"`

	Amount       int    `json:"amount,omitempty"`     // resource deltas, token amounts, hours, positions
	TokenType    string `json:"token_type,omitempty"` // token_gain / token_spend
	LetterID     string `json:"letter_id,omitempty"`
	OtherID      string `json:"other_id,omitempty"` // second letter for letter_swap
	NpcID        string `json:"npc_id,omitempty"`
	LocationID   string `json:"location_id,omitempty"`
	RouteName    string `json:"route_name,omitempty"`
	InfoID       string `json:"info_id,omitempty"`
	ObligationID string `json:"obligation_id,omitempty"`
	ItemID       string `json:"item_id,omitempty"`
	StateKey     string `json:"state_key,omitempty"`
	StateValue   string `json:"state_value,omitempty"`

	// Transient marks a created resource as scene-scoped: the scene
	// machine records it and tears it down on completion or abandonment.
	Transient bool `json:"transient,omitempty"`
}

// EffectList is an ordered list of effect variants forming one outcome
// branch.
type EffectList []Effect

// effectPayload is the wire shape of a non-scalar mapping value.
type effectPayload struct {
	Amount       int    `json:"amount,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	LetterID     string `json:"letter_id,omitempty"`
	OtherID      string `json:"other_id,omitempty"`
	NpcID        string `json:"npc_id,omitempty"`
	LocationID   string `json:"location_id,omitempty"`
	RouteName    string `json:"route_name,omitempty"`
	InfoID       string `json:"info_id,omitempty"`
	ObligationID string `json:"obligation_id,omitempty"`
	ItemID       string `json:"item_id,omitempty"`
	StateKey     string `json:"state_key,omitempty"`
	StateValue   string `json:"state_value,omitempty"`
	Transient    bool   `json:"transient,omitempty"`
}

func (p effectPayload) toEffect(kind EffectKind) Effect {
	return Effect{
		Kind:         kind,
		Amount:       p.Amount,
		TokenType:    p.TokenType,
		LetterID:     p.LetterID,
		OtherID:      p.OtherID,
		NpcID:        p.NpcID,
		LocationID:   p.LocationID,
		RouteName:    p.RouteName,
		InfoID:       p.InfoID,
		ObligationID: p.ObligationID,
		ItemID:       p.ItemID,
		StateKey:     p.StateKey,
		StateValue:   p.StateValue,
		Transient:    p.Transient,
	}
}

// UnmarshalJSON accepts the authored content format: a mapping of
// effect-kind keys to payloads. Scalar values are shorthand for
// {"amount": n} (the common case for resource deltas, e.g.
// "initiative": 2). A value may also be an array of payloads when the
// same kind appears more than once in a branch. Mapping order is not
// meaningful; effects are normalized into the canonical kind order.
func (el *EffectList) UnmarshalJSON(data []byte) error {
	// Also accept an explicit array of tagged effects, which is the
	// form produced by MarshalJSON-free serialization of save state.
	if len(data) > 0 && data[0] == '[' {
		type alias EffectList
		var arr alias
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*el = EffectList(arr)
		return nil
	}

	var raw map[EffectKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	effects := make(EffectList, 0, len(raw))
	for kind, val := range raw {
		if !KnownKind(kind) {
			return fmt.Errorf("unknown effect kind %q", kind)
		}
		parsed, err := parsePayload(kind, val)
		if err != nil {
			return fmt.Errorf("effect %q: %w", kind, err)
		}
		effects = append(effects, parsed...)
	}

	sort.SliceStable(effects, func(i, j int) bool {
		return kindRank[effects[i].Kind] < kindRank[effects[j].Kind]
	})
	*el = effects
	return nil
}

func parsePayload(kind EffectKind, val json.RawMessage) ([]Effect, error) {
	switch {
	case len(val) > 0 && val[0] == '[':
		var payloads []effectPayload
		if err := json.Unmarshal(val, &payloads); err != nil {
			return nil, err
		}
		out := make([]Effect, 0, len(payloads))
		for _, p := range payloads {
			out = append(out, p.toEffect(kind))
		}
		return out, nil
	case len(val) > 0 && val[0] == '{':
		var p effectPayload
		if err := json.Unmarshal(val, &p); err != nil {
			return nil, err
		}
		return []Effect{p.toEffect(kind)}, nil
	default:
		var amount int
		if err := json.Unmarshal(val, &amount); err != nil {
			return nil, fmt.Errorf("expected amount, object or array: %w", err)
		}
		return []Effect{{Kind: kind, Amount: amount}}, nil
	}
}

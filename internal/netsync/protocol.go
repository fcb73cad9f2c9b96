// Package netsync replicates one host-authoritative game across peer
// connections. Exactly one Host owns the canonical state; Guests submit
// intents and replace their local state wholesale on every sync.
//
// The package is transport-agnostic: it speaks through the Conn
// interface, which any ordered, reliable, connection-oriented byte
// channel can satisfy (see internal/transport for the websocket one).
package netsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chrizpy/royalletters-sub000/engine"
)

// Role distinguishes the two sides of the protocol.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Conn is one logical peer endpoint. Implementations must deliver sent
// messages reliably and in order once the connection is open.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close(reason string) error
}

// MsgType tags an Envelope.
type MsgType string

const (
	MsgPlayerJoined     MsgType = "PLAYER_JOINED"
	MsgGameStateSync    MsgType = "GAME_STATE_SYNC"
	MsgPlayerAction     MsgType = "PLAYER_ACTION"
	MsgPriestReveal     MsgType = "PRIEST_REVEAL"
	MsgChatMessage      MsgType = "CHAT_MESSAGE"
	MsgReconnect        MsgType = "RECONNECT"
	MsgRequestStateSync MsgType = "REQUEST_STATE_SYNC"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Type      MsgType         `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
	SenderID  uuid.UUID       `json:"sender_id"`
}

// PlayerJoinedPayload announces a new seat. ResumeToken is set only on
// the unicast echo to the joiner, never on the public broadcast.
type PlayerJoinedPayload struct {
	PlayerID    uuid.UUID `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	AvatarID    string    `json:"avatar_id,omitempty"`
	ResumeToken string    `json:"resume_token,omitempty"`
}

// GameStateSyncPayload carries a full snapshot; applying it is
// idempotent because guests replace, never merge.
type GameStateSyncPayload struct {
	State *engine.GameState `json:"state"`
}

// PlayerActionPayload is a guest intent. Exactly one shape is meant per
// message; Decode picks the variant.
type PlayerActionPayload struct {
	CardID          engine.CardID   `json:"card_id,omitempty"`
	TargetPlayerID  uuid.UUID       `json:"target_player_id"`
	TargetCardGuess engine.CardID   `json:"target_card_guess,omitempty"`
	CardsToReturn   []engine.CardID `json:"cards_to_return,omitempty"`
	IsRevengeGuess  bool            `json:"is_revenge_guess,omitempty"`
}

// Action reconstructs the typed engine action from the wire shape.
func (p PlayerActionPayload) Action() engine.Action {
	switch {
	case p.IsRevengeGuess:
		return engine.Action{Type: engine.ActionRevengeGuess, Guess: p.TargetCardGuess}
	case len(p.CardsToReturn) > 0:
		return engine.Action{Type: engine.ActionChancellorReturn, ReturnCards: p.CardsToReturn}
	default:
		return engine.Action{
			Type:         engine.ActionPlayCard,
			Card:         p.CardID,
			TargetPlayer: p.TargetPlayerID,
			Guess:        p.TargetCardGuess,
		}
	}
}

// PriestRevealPayload is unicast host → acting guest only.
type PriestRevealPayload struct {
	CardID           engine.CardID `json:"card_id"`
	TargetPlayerName string        `json:"target_player_name"`
}

// ChatMessagePayload is relayed verbatim by the host.
type ChatMessagePayload struct {
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
	Timestamp  int64  `json:"timestamp"`
}

// ReconnectPayload re-asserts a previous identity on a new connection.
type ReconnectPayload struct {
	PlayerID    uuid.UUID `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	ResumeToken string    `json:"resume_token,omitempty"`
}

// RequestStateSyncPayload asks the host for a fresh snapshot.
type RequestStateSyncPayload struct {
	PlayerID uuid.UUID `json:"player_id"`
}

// Encode wraps payload in an Envelope and marshals the whole frame.
func Encode(t MsgType, sender uuid.UUID, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		raw = b
	}
	env := Envelope{
		Type:      t,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		SenderID:  sender,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", t, err)
	}
	return b, nil
}

// DecodeEnvelope parses a wire frame.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode envelope: missing type")
	}
	return &env, nil
}

// Decode parses the envelope payload into v.
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("decode %s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

package netsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Chrizpy/royalletters-sub000/engine"
)

// ErrConnectionFailed is the terminal guest state: bounded reconnection
// was exhausted or the host explicitly closed the link. Guests surface
// it instead of retrying forever.
var ErrConnectionFailed = errors.New("netsync: connection to host failed")

// Guest is the non-authoritative end of the protocol. It never applies
// an action locally: it sends PLAYER_ACTION and waits for the host's
// GAME_STATE_SYNC, replacing its whole state copy each time.
type Guest struct {
	PlayerID uuid.UUID
	Name     string

	mu          sync.Mutex
	conn        Conn
	state       *engine.GameState
	resumeToken string
	terminalErr error

	// Notification hooks; all optional and called without the lock.
	OnState  func(*engine.GameState)
	OnReveal func(PriestRevealPayload)
	OnChat   func(ChatMessagePayload)

	log *logrus.Entry
}

// NewGuest creates a guest identity bound to a connection.
func NewGuest(playerID uuid.UUID, name string, conn Conn, logger *logrus.Logger) *Guest {
	if logger == nil {
		logger = logrus.New()
	}
	return &Guest{
		PlayerID: playerID,
		Name:     name,
		conn:     conn,
		log:      logger.WithFields(logrus.Fields{"role": RoleGuest, "player_id": playerID}),
	}
}

// Join announces this guest to the host.
func (gu *Guest) Join(ctx context.Context) error {
	return gu.send(ctx, MsgPlayerJoined, PlayerJoinedPayload{
		PlayerID:   gu.PlayerID,
		PlayerName: gu.Name,
	})
}

// SubmitPlay sends a play-card intent.
func (gu *Guest) SubmitPlay(ctx context.Context, card engine.CardID, target uuid.UUID, guess engine.CardID) error {
	return gu.send(ctx, MsgPlayerAction, PlayerActionPayload{
		CardID:          card,
		TargetPlayerID:  target,
		TargetCardGuess: guess,
	})
}

// SubmitChancellorReturn sends the cards to push back under the deck.
func (gu *Guest) SubmitChancellorReturn(ctx context.Context, cards []engine.CardID) error {
	return gu.send(ctx, MsgPlayerAction, PlayerActionPayload{CardsToReturn: cards})
}

// SubmitRevengeGuess sends the one-shot counter-guess.
func (gu *Guest) SubmitRevengeGuess(ctx context.Context, guess engine.CardID) error {
	return gu.send(ctx, MsgPlayerAction, PlayerActionPayload{
		TargetCardGuess: guess,
		IsRevengeGuess:  true,
	})
}

// SendChat sends a chat line for the host to relay.
func (gu *Guest) SendChat(ctx context.Context, text string, timestamp int64) error {
	return gu.send(ctx, MsgChatMessage, ChatMessagePayload{
		Text:       text,
		SenderName: gu.Name,
		Timestamp:  timestamp,
	})
}

// RequestStateSync asks for a fresh snapshot to repair any divergence.
func (gu *Guest) RequestStateSync(ctx context.Context) error {
	return gu.send(ctx, MsgRequestStateSync, RequestStateSyncPayload{PlayerID: gu.PlayerID})
}

// Resume re-asserts this identity over a freshly established
// connection. The caller owns redialing (see transport.Reconnector);
// when redialing is exhausted it must call Fail instead.
func (gu *Guest) Resume(ctx context.Context, conn Conn) error {
	gu.mu.Lock()
	gu.conn = conn
	gu.terminalErr = nil
	token := gu.resumeToken
	gu.mu.Unlock()

	return gu.send(ctx, MsgReconnect, ReconnectPayload{
		PlayerID:    gu.PlayerID,
		PlayerName:  gu.Name,
		ResumeToken: token,
	})
}

// Fail records the terminal connection error.
func (gu *Guest) Fail(err error) {
	gu.mu.Lock()
	gu.terminalErr = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	gu.mu.Unlock()
	gu.log.WithError(err).Error("connection terminally failed")
}

// Err returns the terminal connection error, or nil while the guest is
// healthy.
func (gu *Guest) Err() error {
	gu.mu.Lock()
	defer gu.mu.Unlock()
	return gu.terminalErr
}

// State returns the last synced snapshot (shared, read-only by
// convention: every sync replaces it wholesale).
func (gu *Guest) State() *engine.GameState {
	gu.mu.Lock()
	defer gu.mu.Unlock()
	return gu.state
}

// ResumeToken returns the token issued by the host at join time.
func (gu *Guest) ResumeToken() string {
	gu.mu.Lock()
	defer gu.mu.Unlock()
	return gu.resumeToken
}

// HandleMessage processes one frame from the host.
func (gu *Guest) HandleMessage(raw []byte) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		gu.log.WithError(err).Warn("dropping malformed frame")
		return
	}

	switch env.Type {
	case MsgGameStateSync:
		var pl GameStateSyncPayload
		if err := env.Decode(&pl); err != nil || pl.State == nil {
			gu.log.WithError(err).Warn("dropping bad state sync")
			return
		}
		gu.mu.Lock()
		gu.state = pl.State // wholesale replacement, never a merge
		gu.mu.Unlock()
		if gu.OnState != nil {
			gu.OnState(pl.State)
		}

	case MsgPlayerJoined:
		var pl PlayerJoinedPayload
		if err := env.Decode(&pl); err != nil {
			gu.log.WithError(err).Warn("dropping bad join notice")
			return
		}
		if pl.PlayerID == gu.PlayerID && pl.ResumeToken != "" {
			gu.mu.Lock()
			gu.resumeToken = pl.ResumeToken
			gu.mu.Unlock()
		}

	case MsgPriestReveal:
		var pl PriestRevealPayload
		if err := env.Decode(&pl); err != nil {
			gu.log.WithError(err).Warn("dropping bad reveal")
			return
		}
		if gu.OnReveal != nil {
			gu.OnReveal(pl)
		}

	case MsgChatMessage:
		var pl ChatMessagePayload
		if err := env.Decode(&pl); err != nil {
			gu.log.WithError(err).Warn("dropping bad chat message")
			return
		}
		if gu.OnChat != nil {
			gu.OnChat(pl)
		}

	default:
		gu.log.WithField("type", env.Type).Warn("unexpected frame from host")
	}
}

func (gu *Guest) send(ctx context.Context, t MsgType, payload interface{}) error {
	gu.mu.Lock()
	conn := gu.conn
	terminal := gu.terminalErr
	gu.mu.Unlock()

	if terminal != nil {
		return terminal
	}
	if conn == nil {
		return fmt.Errorf("%w: no connection", ErrConnectionFailed)
	}
	data, err := Encode(t, gu.PlayerID, payload)
	if err != nil {
		return err
	}
	return conn.Send(ctx, data)
}

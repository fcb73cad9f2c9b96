package netsync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Chrizpy/royalletters-sub000/engine"
	"github.com/Chrizpy/royalletters-sub000/internal/game"
)

// TokenVerifier issues and checks resume tokens. Optional: a nil
// verifier means identity claims on RECONNECT are trusted (the host is
// trusted anyway; tokens only guard against accidental id collisions).
type TokenVerifier interface {
	Issue(playerID uuid.UUID, name string) (string, error)
	Verify(token string) (uuid.UUID, error)
}

const sendTimeout = 5 * time.Second

// Host is the authoritative end of the sync protocol. It owns the game
// session, validates every intent through it, and pushes full-state
// snapshots to every connected guest.
//
// Inbound messages are processed one at a time, broadcast included, so
// all guests observe the same total order of snapshots.
type Host struct {
	ID uuid.UUID // the host's own player id; sender of every outbound envelope

	mu      sync.Mutex // serializes HandleMessage end to end
	peersMu sync.RWMutex
	peers   map[uuid.UUID]Conn

	session *game.Session
	tokens  TokenVerifier

	stateMu   sync.RWMutex
	lastState *engine.GameState

	// OnResume, if set, is called after a player successfully resumes.
	OnResume func(playerID uuid.UUID)

	log *logrus.Entry
}

// NewHost wires a host onto the session's broadcast callbacks.
func NewHost(session *game.Session, hostPlayerID uuid.UUID, tokens TokenVerifier, logger *logrus.Logger) *Host {
	if logger == nil {
		logger = logrus.New()
	}
	h := &Host{
		ID:      hostPlayerID,
		peers:   make(map[uuid.UUID]Conn),
		session: session,
		tokens:  tokens,
		log:     logger.WithFields(logrus.Fields{"role": RoleHost, "game_id": session.ID}),
	}
	session.BroadcastFn = h.broadcastState
	session.BroadcastToPlayerFn = h.sendReveal
	return h
}

// AddPeer registers a guest connection under its player id.
func (h *Host) AddPeer(playerID uuid.UUID, conn Conn) {
	h.peersMu.Lock()
	h.peers[playerID] = conn
	h.peersMu.Unlock()
	h.log.WithField("player_id", playerID).Info("peer connected")
}

// RemovePeer drops a guest connection. The seat itself stays: the
// player may reconnect under the same id.
func (h *Host) RemovePeer(playerID uuid.UUID) {
	h.peersMu.Lock()
	delete(h.peers, playerID)
	h.peersMu.Unlock()
	h.log.WithField("player_id", playerID).Info("peer disconnected")
}

// PlayerName looks up a seated player's name in the last broadcast
// snapshot. Empty when the player is unknown or nothing has been
// broadcast yet.
func (h *Host) PlayerName(playerID uuid.UUID) string {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	if h.lastState == nil {
		return ""
	}
	if p := h.lastState.PlayerByID(playerID); p != nil {
		return p.Name
	}
	return ""
}

// DropConn removes whichever peer owns the given connection, typically
// after its read loop fails. The seat stays for reconnection. Returns
// the player id that was dropped, or uuid.Nil.
func (h *Host) DropConn(conn Conn) uuid.UUID {
	h.peersMu.Lock()
	defer h.peersMu.Unlock()
	for id, c := range h.peers {
		if c == conn {
			delete(h.peers, id)
			h.log.WithField("player_id", id).Info("peer disconnected")
			return id
		}
	}
	return uuid.Nil
}

// HandleMessage processes one inbound frame from a guest connection.
// Malformed or illegal frames are logged and dropped; they never crash
// the host or touch canonical state.
func (h *Host) HandleMessage(ctx context.Context, conn Conn, raw []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env, err := DecodeEnvelope(raw)
	if err != nil {
		h.log.WithError(err).Warn("dropping malformed frame")
		return
	}

	switch env.Type {
	case MsgPlayerJoined:
		h.handleJoin(ctx, conn, env)
	case MsgPlayerAction:
		h.handleAction(env)
	case MsgChatMessage:
		h.relayChat(ctx, env)
	case MsgReconnect:
		h.handleReconnect(ctx, conn, env)
	case MsgRequestStateSync:
		h.handleStateRequest(ctx, env)
	default:
		// GAME_STATE_SYNC and PRIEST_REVEAL only ever flow host → guest.
		h.log.WithField("type", env.Type).Warn("dropping frame guests may not send")
	}
}

func (h *Host) handleJoin(ctx context.Context, conn Conn, env *Envelope) {
	var pl PlayerJoinedPayload
	if err := env.Decode(&pl); err != nil {
		h.log.WithError(err).Warn("dropping bad join")
		return
	}
	if pl.PlayerID == uuid.Nil || pl.PlayerName == "" {
		h.log.Warn("dropping join without identity")
		return
	}

	// Register the connection first so the seat broadcast reaches the
	// joiner too.
	h.AddPeer(pl.PlayerID, conn)
	if _, err := h.session.Join(pl.PlayerID, pl.PlayerName); err != nil {
		h.RemovePeer(pl.PlayerID)
		h.log.WithError(err).WithField("player_id", pl.PlayerID).Warn("join rejected")
		conn.Close("cannot join: " + err.Error())
		return
	}

	echo := PlayerJoinedPayload{PlayerID: pl.PlayerID, PlayerName: pl.PlayerName, AvatarID: pl.AvatarID}
	if h.tokens != nil {
		token, err := h.tokens.Issue(pl.PlayerID, pl.PlayerName)
		if err != nil {
			h.log.WithError(err).Warn("resume token issue failed")
		} else {
			echo.ResumeToken = token
		}
	}
	h.unicast(ctx, pl.PlayerID, MsgPlayerJoined, echo)
	h.broadcastExcept(ctx, pl.PlayerID, MsgPlayerJoined, PlayerJoinedPayload{
		PlayerID: pl.PlayerID, PlayerName: pl.PlayerName, AvatarID: pl.AvatarID,
	})
}

func (h *Host) handleAction(env *Envelope) {
	var pl PlayerActionPayload
	if err := env.Decode(&pl); err != nil {
		h.log.WithError(err).Warn("dropping bad action")
		return
	}
	// Session broadcasts the post-action snapshot to every peer,
	// including the sender, via the wired callback.
	if _, err := h.session.HandleAction(env.SenderID, pl.Action()); err != nil {
		if _, ok := err.(*engine.ValidationError); ok {
			return // already logged by the session; guest repairs via sync
		}
		h.log.WithError(err).Error("action processing failed")
	}
}

func (h *Host) relayChat(ctx context.Context, env *Envelope) {
	var pl ChatMessagePayload
	if err := env.Decode(&pl); err != nil {
		h.log.WithError(err).Warn("dropping bad chat message")
		return
	}
	h.broadcastExcept(ctx, uuid.Nil, MsgChatMessage, pl)
}

func (h *Host) handleReconnect(ctx context.Context, conn Conn, env *Envelope) {
	var pl ReconnectPayload
	if err := env.Decode(&pl); err != nil {
		h.log.WithError(err).Warn("dropping bad reconnect")
		return
	}

	seated := h.session.Player(pl.PlayerID)
	inProgress := h.session.Phase() != engine.PhaseLobby

	if seated == nil {
		if !inProgress {
			// Nothing to resume yet: treat as a fresh join.
			joinEnv := *env
			joinEnv.Type = MsgPlayerJoined
			h.handleJoin(ctx, conn, &joinEnv)
			return
		}
		h.log.WithField("player_id", pl.PlayerID).Warn("reconnect for unknown player")
		conn.Close("unknown player")
		return
	}

	if h.tokens != nil && pl.ResumeToken != "" {
		id, err := h.tokens.Verify(pl.ResumeToken)
		if err != nil || id != pl.PlayerID {
			h.log.WithField("player_id", pl.PlayerID).Warn("reconnect token mismatch")
			conn.Close("resume token mismatch")
			return
		}
	}

	h.AddPeer(pl.PlayerID, conn)
	h.log.WithField("player_id", pl.PlayerID).Info("player resumed")
	h.unicast(ctx, pl.PlayerID, MsgGameStateSync, GameStateSyncPayload{State: h.session.Snapshot()})
	if h.OnResume != nil {
		h.OnResume(pl.PlayerID)
	}
}

func (h *Host) handleStateRequest(ctx context.Context, env *Envelope) {
	var pl RequestStateSyncPayload
	if err := env.Decode(&pl); err != nil {
		h.log.WithError(err).Warn("dropping bad sync request")
		return
	}
	h.unicast(ctx, pl.PlayerID, MsgGameStateSync, GameStateSyncPayload{State: h.session.Snapshot()})
}

// broadcastState is the session's broadcast callback. It runs with the
// session lock held, which is what makes snapshot order match the
// host's application order.
func (h *Host) broadcastState(snapshot *engine.GameState) {
	h.stateMu.Lock()
	h.lastState = snapshot
	h.stateMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	h.broadcastExcept(ctx, uuid.Nil, MsgGameStateSync, GameStateSyncPayload{State: snapshot})
}

// sendReveal is the session's private-reveal callback: unicast to the
// acting player only.
func (h *Host) sendReveal(playerID uuid.UUID, reveal *engine.Reveal) {
	targetName := ""
	h.stateMu.RLock()
	if h.lastState != nil {
		if t := h.lastState.PlayerByID(reveal.PlayerID); t != nil {
			targetName = t.Name
		}
	}
	h.stateMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	h.unicast(ctx, playerID, MsgPriestReveal, PriestRevealPayload{
		CardID:           reveal.Card,
		TargetPlayerName: targetName,
	})
}

// broadcastExcept sends to every connected peer except the given id
// (uuid.Nil excludes no one). Send failures are logged per peer; a slow
// or dead guest never blocks the rest.
func (h *Host) broadcastExcept(ctx context.Context, except uuid.UUID, t MsgType, payload interface{}) {
	data, err := Encode(t, h.ID, payload)
	if err != nil {
		h.log.WithError(err).Error("broadcast encode failed")
		return
	}
	h.peersMu.RLock()
	defer h.peersMu.RUnlock()
	for id, conn := range h.peers {
		if id == except {
			continue
		}
		if err := conn.Send(ctx, data); err != nil {
			h.log.WithError(err).WithField("player_id", id).Warn("send failed")
		}
	}
}

func (h *Host) unicast(ctx context.Context, playerID uuid.UUID, t MsgType, payload interface{}) {
	data, err := Encode(t, h.ID, payload)
	if err != nil {
		h.log.WithError(err).Error("unicast encode failed")
		return
	}
	h.peersMu.RLock()
	conn, ok := h.peers[playerID]
	h.peersMu.RUnlock()
	if !ok {
		return
	}
	if err := conn.Send(ctx, data); err != nil {
		h.log.WithError(err).WithField("player_id", playerID).Warn("send failed")
	}
}

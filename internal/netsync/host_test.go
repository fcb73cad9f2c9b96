package netsync

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrizpy/royalletters-sub000/engine"
	"github.com/Chrizpy/royalletters-sub000/internal/game"
)

// fakeConn records frames instead of sending them anywhere.
type fakeConn struct {
	mu          sync.Mutex
	frames      [][]byte
	closed      bool
	closeReason string
}

func (c *fakeConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeReason = reason
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []*Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		env, err := DecodeEnvelope(f)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) lastOfType(t *testing.T, mt MsgType) *Envelope {
	t.Helper()
	var found *Envelope
	for _, env := range c.envelopes(t) {
		if env.Type == mt {
			found = env
		}
	}
	return found
}

// stubTokens is a trivially decodable token scheme for tests.
type stubTokens struct{}

func (stubTokens) Issue(playerID uuid.UUID, _ string) (string, error) {
	return "tok:" + playerID.String(), nil
}

func (stubTokens) Verify(token string) (uuid.UUID, error) {
	if len(token) < 5 || token[:4] != "tok:" {
		return uuid.Nil, fmt.Errorf("bad token")
	}
	return uuid.Parse(token[4:])
}

func newTestHost(t *testing.T, tokens TokenVerifier) (*Host, *game.Session, uuid.UUID) {
	t.Helper()
	session, err := game.NewSession(engine.RulesetClassic, nil)
	require.NoError(t, err)
	hostPlayer, err := session.AddPlayer("host", true, false)
	require.NoError(t, err)
	return NewHost(session, hostPlayer.ID, tokens, nil), session, hostPlayer.ID
}

func joinFrame(t *testing.T, id uuid.UUID, name string) []byte {
	t.Helper()
	data, err := Encode(MsgPlayerJoined, id, PlayerJoinedPayload{PlayerID: id, PlayerName: name})
	require.NoError(t, err)
	return data
}

func TestHostJoinSeatsAndSyncs(t *testing.T) {
	host, session, _ := newTestHost(t, stubTokens{})
	ctx := context.Background()

	guestID := uuid.New()
	conn := &fakeConn{}
	host.HandleMessage(ctx, conn, joinFrame(t, guestID, "guest"))

	snap := session.Snapshot()
	require.Len(t, snap.Players, 2)
	assert.Equal(t, guestID, snap.Players[1].ID)

	// The joiner sees the seat broadcast and then the token echo.
	sync := conn.lastOfType(t, MsgGameStateSync)
	require.NotNil(t, sync, "joiner never received a state sync")
	var syncPl GameStateSyncPayload
	require.NoError(t, sync.Decode(&syncPl))
	assert.Len(t, syncPl.State.Players, 2)

	echo := conn.lastOfType(t, MsgPlayerJoined)
	require.NotNil(t, echo)
	var echoPl PlayerJoinedPayload
	require.NoError(t, echo.Decode(&echoPl))
	assert.Equal(t, "tok:"+guestID.String(), echoPl.ResumeToken)
}

func TestHostJoinNotifiesOthersWithoutToken(t *testing.T) {
	host, _, _ := newTestHost(t, stubTokens{})
	ctx := context.Background()

	first := &fakeConn{}
	firstID := uuid.New()
	host.HandleMessage(ctx, first, joinFrame(t, firstID, "first"))

	second := &fakeConn{}
	secondID := uuid.New()
	host.HandleMessage(ctx, second, joinFrame(t, secondID, "second"))

	notice := first.lastOfType(t, MsgPlayerJoined)
	require.NotNil(t, notice, "existing guest missed the join notice")
	var pl PlayerJoinedPayload
	require.NoError(t, notice.Decode(&pl))
	assert.Equal(t, secondID, pl.PlayerID)
	assert.Empty(t, pl.ResumeToken, "resume tokens are private to their owner")
}

func TestHostRejectsDuplicateJoin(t *testing.T) {
	host, _, _ := newTestHost(t, nil)
	ctx := context.Background()

	id := uuid.New()
	host.HandleMessage(ctx, &fakeConn{}, joinFrame(t, id, "guest"))

	dup := &fakeConn{}
	host.HandleMessage(ctx, dup, joinFrame(t, id, "imposter"))
	assert.True(t, dup.closed, "duplicate join must close the connection")
}

func TestHostRejectsJoinWithoutIdentity(t *testing.T) {
	host, session, _ := newTestHost(t, nil)
	data, err := Encode(MsgPlayerJoined, uuid.Nil, PlayerJoinedPayload{})
	require.NoError(t, err)
	host.HandleMessage(context.Background(), &fakeConn{}, data)
	assert.Len(t, session.Snapshot().Players, 1, "anonymous join took a seat")
}

func TestHostDropsMalformedFrames(t *testing.T) {
	host, session, _ := newTestHost(t, nil)
	host.HandleMessage(context.Background(), &fakeConn{}, []byte("garbage"))
	host.HandleMessage(context.Background(), &fakeConn{}, []byte(`{"type":"GAME_STATE_SYNC"}`))
	assert.Len(t, session.Snapshot().Players, 1)
}

// scriptRound puts the session into a known mid-round position so action
// frames have deterministic outcomes.
func scriptRound(t *testing.T, session *game.Session, hands map[uuid.UUID][]engine.CardID, activeID uuid.UUID) {
	t.Helper()
	session.Mu.Lock()
	defer session.Mu.Unlock()
	for i, p := range session.State.Players {
		p.Hand = append([]engine.CardID(nil), hands[p.ID]...)
		p.Status = engine.StatusPlaying
		if p.ID == activeID {
			session.State.ActiveIndex = i
		}
	}
	session.State.Deck = []engine.CardID{engine.CardGuard, engine.CardHandmaid, engine.CardPriest}
	session.State.Round = 1
	session.State.Phase = engine.PhaseWaitingForAction
}

func TestHostActionBroadcastsNewState(t *testing.T) {
	host, session, hostID := newTestHost(t, nil)
	ctx := context.Background()

	guestID := uuid.New()
	conn := &fakeConn{}
	host.HandleMessage(ctx, conn, joinFrame(t, guestID, "guest"))

	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		guestID: {engine.CardGuard, engine.CardPriest},
		hostID:  {engine.CardKing},
	}, guestID)

	data, err := Encode(MsgPlayerAction, guestID, PlayerActionPayload{
		CardID:          engine.CardGuard,
		TargetPlayerID:  hostID,
		TargetCardGuess: engine.CardKing,
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)

	sync := conn.lastOfType(t, MsgGameStateSync)
	require.NotNil(t, sync)
	var pl GameStateSyncPayload
	require.NoError(t, sync.Decode(&pl))
	assert.Equal(t, engine.StatusEliminated, pl.State.PlayerByID(hostID).Status,
		"broadcast state must reflect the applied guess")
}

func TestHostActionRejectionIsSilent(t *testing.T) {
	host, session, hostID := newTestHost(t, nil)
	ctx := context.Background()

	guestID := uuid.New()
	conn := &fakeConn{}
	host.HandleMessage(ctx, conn, joinFrame(t, guestID, "guest"))

	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		guestID: {engine.CardGuard, engine.CardPriest},
		hostID:  {engine.CardKing},
	}, hostID) // not the guest's turn

	before := len(conn.envelopes(t))
	data, err := Encode(MsgPlayerAction, guestID, PlayerActionPayload{
		CardID: engine.CardGuard, TargetPlayerID: hostID, TargetCardGuess: engine.CardKing,
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)

	assert.Equal(t, before, len(conn.envelopes(t)), "a rejected action must not produce frames")
	assert.False(t, conn.closed)
}

func TestHostPriestRevealIsUnicast(t *testing.T) {
	host, session, hostID := newTestHost(t, nil)
	ctx := context.Background()

	actorID, bystanderID := uuid.New(), uuid.New()
	actorConn, bystanderConn := &fakeConn{}, &fakeConn{}
	host.HandleMessage(ctx, actorConn, joinFrame(t, actorID, "actor"))
	host.HandleMessage(ctx, bystanderConn, joinFrame(t, bystanderID, "bystander"))

	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		actorID:     {engine.CardPriest, engine.CardGuard},
		bystanderID: {engine.CardHandmaid},
		hostID:      {engine.CardKing},
	}, actorID)

	data, err := Encode(MsgPlayerAction, actorID, PlayerActionPayload{
		CardID: engine.CardPriest, TargetPlayerID: hostID,
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, actorConn, data)

	reveal := actorConn.lastOfType(t, MsgPriestReveal)
	require.NotNil(t, reveal, "actor never received the reveal")
	var pl PriestRevealPayload
	require.NoError(t, reveal.Decode(&pl))
	assert.Equal(t, engine.CardKing, pl.CardID)
	assert.Equal(t, "host", pl.TargetPlayerName)

	assert.Nil(t, bystanderConn.lastOfType(t, MsgPriestReveal),
		"the reveal leaked to a bystander")
}

func TestHostChatRelayReachesEveryone(t *testing.T) {
	host, _, _ := newTestHost(t, nil)
	ctx := context.Background()

	aID, bID := uuid.New(), uuid.New()
	aConn, bConn := &fakeConn{}, &fakeConn{}
	host.HandleMessage(ctx, aConn, joinFrame(t, aID, "a"))
	host.HandleMessage(ctx, bConn, joinFrame(t, bID, "b"))

	data, err := Encode(MsgChatMessage, aID, ChatMessagePayload{Text: "gl hf", SenderName: "a"})
	require.NoError(t, err)
	host.HandleMessage(ctx, aConn, data)

	for name, conn := range map[string]*fakeConn{"sender": aConn, "other": bConn} {
		env := conn.lastOfType(t, MsgChatMessage)
		require.NotNil(t, env, "%s missed the chat relay", name)
		var pl ChatMessagePayload
		require.NoError(t, env.Decode(&pl))
		assert.Equal(t, "gl hf", pl.Text)
	}
}

func TestHostReconnectSeatedPlayer(t *testing.T) {
	host, session, hostID := newTestHost(t, stubTokens{})
	ctx := context.Background()

	guestID := uuid.New()
	oldConn := &fakeConn{}
	host.HandleMessage(ctx, oldConn, joinFrame(t, guestID, "guest"))
	echo := oldConn.lastOfType(t, MsgPlayerJoined)
	require.NotNil(t, echo)
	var echoPl PlayerJoinedPayload
	require.NoError(t, echo.Decode(&echoPl))

	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		guestID: {engine.CardGuard},
		hostID:  {engine.CardKing},
	}, guestID)
	host.RemovePeer(guestID)

	newConn := &fakeConn{}
	data, err := Encode(MsgReconnect, guestID, ReconnectPayload{
		PlayerID: guestID, PlayerName: "guest", ResumeToken: echoPl.ResumeToken,
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, newConn, data)

	sync := newConn.lastOfType(t, MsgGameStateSync)
	require.NotNil(t, sync, "resumed player got no fresh snapshot")
	var pl GameStateSyncPayload
	require.NoError(t, sync.Decode(&pl))
	assert.Equal(t, engine.PhaseWaitingForAction, pl.State.Phase)
	assert.False(t, newConn.closed)
}

func TestHostReconnectBadToken(t *testing.T) {
	host, session, hostID := newTestHost(t, stubTokens{})
	ctx := context.Background()

	guestID := uuid.New()
	host.HandleMessage(ctx, &fakeConn{}, joinFrame(t, guestID, "guest"))
	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		guestID: {engine.CardGuard},
		hostID:  {engine.CardKing},
	}, guestID)

	conn := &fakeConn{}
	data, err := Encode(MsgReconnect, guestID, ReconnectPayload{
		PlayerID: guestID, PlayerName: "guest", ResumeToken: "tok:" + uuid.NewString(),
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)
	assert.True(t, conn.closed, "token for a different player must be refused")
}

func TestHostReconnectUnknownMidGame(t *testing.T) {
	host, session, hostID := newTestHost(t, nil)
	ctx := context.Background()

	guestID := uuid.New()
	host.HandleMessage(ctx, &fakeConn{}, joinFrame(t, guestID, "guest"))
	scriptRound(t, session, map[uuid.UUID][]engine.CardID{
		guestID: {engine.CardGuard},
		hostID:  {engine.CardKing},
	}, guestID)

	conn := &fakeConn{}
	data, err := Encode(MsgReconnect, uuid.New(), ReconnectPayload{
		PlayerID: uuid.New(), PlayerName: "stranger",
	})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)
	assert.True(t, conn.closed, "strangers cannot enter a running game")
}

func TestHostReconnectUnknownInLobbyBecomesJoin(t *testing.T) {
	host, session, _ := newTestHost(t, nil)
	ctx := context.Background()

	id := uuid.New()
	conn := &fakeConn{}
	data, err := Encode(MsgReconnect, id, ReconnectPayload{PlayerID: id, PlayerName: "early bird"})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)

	snap := session.Snapshot()
	require.Len(t, snap.Players, 2)
	assert.Equal(t, id, snap.Players[1].ID)
	assert.False(t, conn.closed)
}

func TestHostStateRequest(t *testing.T) {
	host, _, _ := newTestHost(t, nil)
	ctx := context.Background()

	guestID := uuid.New()
	conn := &fakeConn{}
	host.HandleMessage(ctx, conn, joinFrame(t, guestID, "guest"))

	before := len(conn.envelopes(t))
	data, err := Encode(MsgRequestStateSync, guestID, RequestStateSyncPayload{PlayerID: guestID})
	require.NoError(t, err)
	host.HandleMessage(ctx, conn, data)

	frames := conn.envelopes(t)
	require.Greater(t, len(frames), before)
	assert.Equal(t, MsgGameStateSync, frames[len(frames)-1].Type)
}

func TestHostDropConn(t *testing.T) {
	host, _, _ := newTestHost(t, nil)
	ctx := context.Background()

	guestID := uuid.New()
	conn := &fakeConn{}
	host.HandleMessage(ctx, conn, joinFrame(t, guestID, "guest"))

	assert.Equal(t, guestID, host.DropConn(conn))
	assert.Equal(t, uuid.Nil, host.DropConn(conn), "double drop must be a no-op")
	assert.Equal(t, "guest", host.PlayerName(guestID), "the seat survives the drop")
}

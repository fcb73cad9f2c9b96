package netsync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrizpy/royalletters-sub000/engine"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	sender := uuid.New()
	data, err := Encode(MsgChatMessage, sender, ChatMessagePayload{Text: "hi", SenderName: "ann"})
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MsgChatMessage, env.Type)
	assert.Equal(t, sender, env.SenderID)
	assert.NotZero(t, env.Timestamp)

	var pl ChatMessagePayload
	require.NoError(t, env.Decode(&pl))
	assert.Equal(t, "hi", pl.Text)
	assert.Equal(t, "ann", pl.SenderName)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeEnvelope([]byte(`{"payload":{}}`))
	assert.Error(t, err, "an envelope without a type is useless")
}

func TestDecodeEmptyPayload(t *testing.T) {
	env := &Envelope{Type: MsgRequestStateSync}
	var pl RequestStateSyncPayload
	assert.Error(t, env.Decode(&pl))
}

func TestPlayerActionPayloadVariants(t *testing.T) {
	target := uuid.New()

	play := PlayerActionPayload{
		CardID:          engine.CardGuard,
		TargetPlayerID:  target,
		TargetCardGuess: engine.CardBaron,
	}.Action()
	assert.Equal(t, engine.ActionPlayCard, play.Type)
	assert.Equal(t, engine.CardGuard, play.Card)
	assert.Equal(t, target, play.TargetPlayer)
	assert.Equal(t, engine.CardBaron, play.Guess)

	ret := PlayerActionPayload{
		CardsToReturn: []engine.CardID{engine.CardSpy, engine.CardPriest},
	}.Action()
	assert.Equal(t, engine.ActionChancellorReturn, ret.Type)
	assert.Equal(t, []engine.CardID{engine.CardSpy, engine.CardPriest}, ret.ReturnCards)

	revenge := PlayerActionPayload{
		TargetCardGuess: engine.CardKing,
		IsRevengeGuess:  true,
	}.Action()
	assert.Equal(t, engine.ActionRevengeGuess, revenge.Type)
	assert.Equal(t, engine.CardKing, revenge.Guess)
}

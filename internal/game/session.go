// Package game owns the single mutable engine instance of one hosted
// match. The session serializes every mutation under one mutex, emits
// full-state snapshots through callbacks, and paces AI seats. It is the
// only writer of its GameState; everything else sees clones.
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Chrizpy/royalletters-sub000/engine"
	"github.com/Chrizpy/royalletters-sub000/engine/bot"
)

// ActionRecord is one applied action, handed to the history sink.
type ActionRecord struct {
	GameID    uuid.UUID     `json:"gameId"`
	Index     int           `json:"index"`
	ActorID   uuid.UUID     `json:"actorId"`
	Action    engine.Action `json:"action"`
	Message   string        `json:"message"`
	Timestamp int64         `json:"timestamp"`
}

// Session hosts one game. All exported methods lock internally unless
// noted otherwise.
type Session struct {
	ID uuid.UUID

	Mu    sync.Mutex
	State *engine.GameState

	// BroadcastFn receives a detached snapshot after every applied
	// mutation. BroadcastToPlayerFn carries private reveals. RecordFn,
	// if set, receives the action history stream. All may be nil.
	BroadcastFn         func(snapshot *engine.GameState)
	BroadcastToPlayerFn func(playerID uuid.UUID, reveal *engine.Reveal)
	RecordFn            func(rec ActionRecord)
	OnGameEnd           func(winnerID uuid.UUID)

	// AIDelay paces bot moves so humans can follow the game.
	AIDelay time.Duration

	log         *logrus.Entry
	actionIndex int
	inputGate   *PauseGate
}

// NewSession creates a lobby-phase session for the given ruleset.
func NewSession(rs engine.Ruleset, logger *logrus.Logger) (*Session, error) {
	state, err := engine.NewGame(rs)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	id := uuid.New()
	return &Session{
		ID:      id,
		State:   state,
		AIDelay: 1200 * time.Millisecond,
		log:     logger.WithField("game_id", id),
	}, nil
}

// AddPlayer seats a player in the lobby.
func (s *Session) AddPlayer(name string, isHost, isAI bool) (*engine.Player, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	p, err := s.State.AddPlayer(name, isHost, isAI)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"player_id": p.ID, "name": name, "ai": isAI}).Info("player seated")
	s.broadcastLocked()
	return p, nil
}

// Join seats a remote player under the id their peer brought, so the
// identity survives reconnects.
func (s *Session) Join(id uuid.UUID, name string) (*engine.Player, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	p, err := s.State.AddSeat(id, name, false, false)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"player_id": p.ID, "name": name}).Info("remote player joined")
	s.broadcastLocked()
	return p, nil
}

// StartRound seeds and deals a new round and opens the first turn.
// The seed comes from a fresh UUID so rounds are independent but
// replayable from the logged seed.
func (s *Session) StartRound() error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	seed := uuid.NewString()
	if err := s.State.StartRound(seed); err != nil {
		return err
	}
	if err := s.State.BeginTurn(); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"round": s.State.Round, "seed": seed}).Info("round started")
	s.broadcastLocked()
	s.scheduleAILocked()
	return nil
}

// HandleAction validates and applies one player action. A
// *engine.ValidationError is an expected rejection the caller may show
// or drop; any other error is an engine invariant violation.
func (s *Session) HandleAction(playerID uuid.UUID, a engine.Action) (*engine.ActionResult, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.handleActionLocked(playerID, a)
}

func (s *Session) handleActionLocked(playerID uuid.UUID, a engine.Action) (*engine.ActionResult, error) {
	res, err := s.State.Submit(playerID, a)
	if err != nil {
		if verr, ok := err.(*engine.ValidationError); ok {
			s.log.WithFields(logrus.Fields{
				"player_id": playerID,
				"reason":    verr.Code,
			}).Warn("action rejected")
			return nil, err
		}
		s.log.WithError(err).WithField("player_id", playerID).Error("engine invariant violation")
		return nil, err
	}

	s.actionIndex++
	if s.RecordFn != nil {
		s.RecordFn(ActionRecord{
			GameID:    s.ID,
			Index:     s.actionIndex,
			ActorID:   playerID,
			Action:    a,
			Message:   res.Message,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	// The actor never implicitly has the post-action state: broadcast
	// to everyone, then unicast any private reveal.
	s.broadcastLocked()
	if res.Revealed != nil && s.BroadcastToPlayerFn != nil {
		s.BroadcastToPlayerFn(playerID, res.Revealed)
	}

	if s.State.Phase == engine.PhaseGameEnd {
		s.log.WithField("winner_id", s.State.WinnerID).Info("game over")
		if s.OnGameEnd != nil {
			s.OnGameEnd(s.State.WinnerID)
		}
		return res, nil
	}
	s.scheduleAILocked()
	return res, nil
}

// Snapshot returns a detached copy of the current state.
func (s *Session) Snapshot() *engine.GameState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.State.Clone()
}

// Phase returns the current phase.
func (s *Session) Phase() engine.Phase {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.State.Phase
}

// Player returns a detached copy of the seated player, or nil.
func (s *Session) Player(id uuid.UUID) *engine.Player {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := s.State.PlayerByID(id)
	if p == nil {
		return nil
	}
	cp := *p
	cp.Hand = append([]engine.CardID(nil), p.Hand...)
	cp.Discard = append([]engine.CardID(nil), p.Discard...)
	return &cp
}

// PauseInput opens a read-this-modal pause: the UI layer must not submit
// local actions until the gate resolves, by timer or by dismissal,
// whichever fires first. Engine calls are never blocked by it.
func (s *Session) PauseInput(d time.Duration) *PauseGate {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.inputGate = NewPauseGate(d)
	return s.inputGate
}

// InputAllowed reports whether the UI layer may submit a local action.
func (s *Session) InputAllowed() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.inputGate == nil || !s.inputGate.Active()
}

// broadcastLocked pushes a snapshot clone to the broadcast callback.
// Callers hold the lock.
func (s *Session) broadcastLocked() {
	if s.BroadcastFn != nil {
		s.BroadcastFn(s.State.Clone())
	}
}

// pendingAISeat returns the AI player who must act right now, if any.
// Callers hold the lock.
func (s *Session) pendingAISeat() *engine.Player {
	switch s.State.Phase {
	case engine.PhaseWaitingForAction, engine.PhaseChancellorResolving:
		if p := s.State.ActivePlayer(); p != nil && p.IsAI {
			return p
		}
	case engine.PhaseWaitingForRevengeGuess:
		if s.State.Revenge != nil {
			if p := s.State.PlayerByID(s.State.Revenge.GuesserID); p != nil && p.IsAI {
				return p
			}
		}
	}
	return nil
}

// scheduleAILocked arms a pacing timer for the AI seat that must act.
// The callback re-checks whose decision it is before moving: the state
// may have changed (disconnection, round restart) during the delay.
func (s *Session) scheduleAILocked() {
	seat := s.pendingAISeat()
	if seat == nil {
		return
	}
	seatID := seat.ID
	time.AfterFunc(s.AIDelay, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		current := s.pendingAISeat()
		if current == nil || current.ID != seatID {
			return
		}
		a := bot.ChooseAction(s.State, seatID)
		if a == nil {
			return
		}
		if _, err := s.handleActionLocked(seatID, *a); err != nil {
			s.log.WithError(err).WithField("player_id", seatID).Error("ai action failed")
		}
	})
}

// RequireHost returns an error unless playerID is the seated host.
func (s *Session) RequireHost(playerID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	p := s.State.PlayerByID(playerID)
	if p == nil || !p.IsHost {
		return fmt.Errorf("player %s is not the host", playerID)
	}
	return nil
}

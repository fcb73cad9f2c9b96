// Command hostd runs the authoritative side of one game over
// websockets. Guests connect to /ws; the host player is seated locally
// at startup and the first guest-visible lobby is broadcast as peers
// join.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Chrizpy/royalletters-sub000/engine"
	"github.com/Chrizpy/royalletters-sub000/internal/auth"
	"github.com/Chrizpy/royalletters-sub000/internal/cache"
	"github.com/Chrizpy/royalletters-sub000/internal/config"
	"github.com/Chrizpy/royalletters-sub000/internal/database"
	"github.com/Chrizpy/royalletters-sub000/internal/game"
	"github.com/Chrizpy/royalletters-sub000/internal/netsync"
	"github.com/Chrizpy/royalletters-sub000/internal/transport"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := game.NewSession(engine.Ruleset(cfg.Ruleset), logger)
	if err != nil {
		logger.WithError(err).Fatal("create session")
	}
	session.AIDelay = cfg.AIDelay

	hostPlayer, err := session.AddPlayer(cfg.HostName, true, false)
	if err != nil {
		logger.WithError(err).Fatal("seat host")
	}
	for i := 0; i < cfg.AISeats; i++ {
		if _, err := session.AddPlayer(fmt.Sprintf("bot-%d", i+1), false, true); err != nil {
			logger.WithError(err).Fatal("seat bot")
		}
	}

	var tokens netsync.TokenVerifier
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	}
	host := netsync.NewHost(session, hostPlayer.ID, tokens, logger)

	var store *cache.Store
	if cfg.RedisAddr != "" {
		store = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := store.Ping(ctx); err != nil {
			logger.WithError(err).Fatal("redis unreachable")
		}
		defer store.Close()
	}

	var db *database.Store
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("postgres unreachable")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("migrate")
		}
	}

	wireStores(ctx, logger, session, host, store, db)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveGuest(ctx, logger, host, store, hostPlayer.ID, w, r)
	})
	mux.HandleFunc("/start", handleStart(ctx, logger, session, db))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"addr":    cfg.ListenAddr,
		"ruleset": cfg.Ruleset,
		"game_id": session.ID,
	}).Info("hosting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("serve")
	}
}

// wireStores connects the session's history stream and end-of-game hook
// to whichever stores are configured.
func wireStores(ctx context.Context, logger *logrus.Logger, session *game.Session, host *netsync.Host, store *cache.Store, db *database.Store) {
	if store == nil && db == nil {
		return
	}
	session.RecordFn = func(rec game.ActionRecord) {
		recCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if store != nil {
			if err := store.PublishAction(recCtx, rec); err != nil {
				logger.WithError(err).Warn("action stream publish failed")
			}
		}
		if db != nil {
			if err := db.SaveAction(recCtx, rec); err != nil {
				logger.WithError(err).Warn("action audit write failed")
			}
		}
	}
	if db != nil {
		session.OnGameEnd = func(winnerID uuid.UUID) {
			endCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			state := session.Snapshot()
			if err := db.SaveResult(endCtx, session.ID, winnerID, state.Ruleset); err != nil {
				logger.WithError(err).Warn("result write failed")
			}
		}
	}
	if store != nil {
		host.OnResume = func(playerID uuid.UUID) {
			resCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := store.DropResume(resCtx, playerID); err != nil {
				logger.WithError(err).Warn("resume record cleanup failed")
			}
		}
	}
}

// handleStart begins the next round. It is the host operator's local
// control surface, not part of the guest protocol.
func handleStart(ctx context.Context, logger *logrus.Logger, session *game.Session, db *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := session.StartRound(); err != nil {
			logger.WithError(err).Warn("round start rejected")
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if db != nil {
			saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := db.SaveRoundStart(saveCtx, session.ID, session.Snapshot()); err != nil {
				logger.WithError(err).Warn("round snapshot write failed")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// serveGuest accepts one websocket connection and pumps its frames into
// the host until the connection drops.
func serveGuest(ctx context.Context, logger *logrus.Logger, host *netsync.Host, store *cache.Store, hostID uuid.UUID, w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket accept failed")
		return
	}
	conn := transport.NewWSConn(ws)

	err = conn.ReadLoop(r.Context(), func(data []byte) {
		host.HandleMessage(ctx, conn, data)
	})
	logger.WithError(err).Debug("guest read loop ended")

	if droppedID := host.DropConn(conn); droppedID != uuid.Nil && store != nil {
		recCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		rec := cache.ResumeRecord{
			GuestPeerID: droppedID,
			HostPeerID:  hostID,
			Timestamp:   time.Now().UnixMilli(),
		}
		if p := host.PlayerName(droppedID); p != "" {
			rec.Nickname = p
		}
		if err := store.SaveResume(recCtx, rec); err != nil {
			logger.WithError(err).Warn("resume record write failed")
		}
	}
}

package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/qninhdt/grandline-rpg/server/internal/game"
	mw "github.com/qninhdt/grandline-rpg/server/internal/middleware"
	"github.com/qninhdt/grandline-rpg/server/internal/validation"
)

// Options carries the server's collaborators
type Options struct {
	Roster        *game.Roster
	Resolver      game.TurnResolver
	Store         game.SnapshotStore
	EndRule       game.EndRule
	Auth          *mw.Authenticator
	GMSecret      string
	PlayerSecrets map[string]string
	RateLimit     float64
	RateBurst     int
	MaxBodyBytes  int64
}

// Server handles HTTP requests
type Server struct {
	router        chi.Router
	roster        *game.Roster
	resolver      game.TurnResolver
	store         game.SnapshotStore
	endRule       game.EndRule
	auth          *mw.Authenticator
	gmSecret      string
	playerSecrets map[string]string
	sessions      map[string]*game.Session
	sessionsMu    sync.RWMutex
	rateLimiter   *mw.RateLimiter
	maxBodyBytes  int64
	hub           *Hub
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 40
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1024 * 1024
	}

	s := &Server{
		router:        chi.NewRouter(),
		roster:        opts.Roster,
		resolver:      opts.Resolver,
		store:         opts.Store,
		endRule:       opts.EndRule,
		auth:          opts.Auth,
		gmSecret:      opts.GMSecret,
		playerSecrets: opts.PlayerSecrets,
		sessions:      make(map[string]*game.Session),
		rateLimiter:   mw.NewRateLimiter(opts.RateLimit, opts.RateBurst),
		maxBodyBytes:  opts.MaxBodyBytes,
		hub:           NewHub(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(mw.SecurityHeadersMiddleware)
	s.router.Use(mw.MaxBodySizeMiddleware(s.maxBodyBytes))

	// Public endpoints (no auth required)
	s.router.Get("/healthz", s.health)
	s.router.Post("/api/login", s.login)

	// Protected endpoints (auth required)
	s.router.Group(func(r chi.Router) {
		r.Use(s.auth.AuthMiddleware)

		r.Get("/api/sessions/{id}", s.getSession)
		r.Get("/api/sessions/{id}/log", s.getLog)
		r.Get("/api/sessions/{id}/ws", s.serveWS)
		r.Post("/api/sessions/{id}/actions", s.submitAction)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireGM)
			r.Get("/api/sessions", s.listSessions)
			r.Post("/api/sessions", s.createSession)
			r.Post("/api/sessions/{id}/turn", s.resolveTurn)
			r.Post("/api/sessions/{id}/active", s.setActive)
			r.Post("/api/sessions/{id}/restart", s.restart)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// stateView is a session state as sent to views
type stateView struct {
	SessionID string `json:"sessionId"`
	*game.GameState
	TotalBounty int64 `json:"totalBounty"`
}

// intentResult answers a turn intent. Rejected intents are not errors.
type intentResult struct {
	Accepted    bool                     `json:"accepted"`
	Outcome     game.Outcome             `json:"outcome"`
	State       stateView                `json:"state"`
	Activations []game.AbilityActivation `json:"activations,omitempty"`
}

func newStateView(id string, st *game.GameState) stateView {
	return stateView{SessionID: id, GameState: st, TotalBounty: st.TotalBounty()}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (sanitized)
func writeError(w http.ResponseWriter, status int, message string) {
	if status >= 500 {
		message = "Internal server error"
	}
	writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

func writeIntent(w http.ResponseWriter, id string, outcome game.Outcome, st *game.GameState, activations []game.AbilityActivation) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: intentResult{
			Accepted:    outcome.Accepted(),
			Outcome:     outcome,
			State:       newStateView(id, st),
			Activations: activations,
		},
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errSessionNotFound is returned when neither memory nor the store knows an id
var errSessionNotFound = errors.New("session not found")

// session returns a live session, restoring it from the store on first use
func (s *Server) session(ctx context.Context, id string) (*game.Session, error) {
	s.sessionsMu.RLock()
	sess, ok := s.sessions[id]
	s.sessionsMu.RUnlock()
	if ok {
		return sess, nil
	}

	if s.store == nil {
		return nil, errSessionNotFound
	}
	if _, found, err := s.store.Load(ctx, id); err != nil {
		return nil, err
	} else if !found {
		return nil, errSessionNotFound
	}

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess, err := game.OpenSession(ctx, id, s.sessionOptions())
	if err != nil {
		return nil, err
	}
	s.track(sess)
	return sess, nil
}

func (s *Server) sessionOptions() game.SessionOptions {
	return game.SessionOptions{
		Roster:   s.roster,
		Resolver: s.resolver,
		Store:    s.store,
		EndRule:  s.endRule,
	}
}

// track registers a session and forwards its changes to the hub. Callers
// hold sessionsMu.
func (s *Server) track(sess *game.Session) {
	s.sessions[sess.ID] = sess
	sess.Subscribe(func(id string, st *game.GameState) {
		s.hub.Publish(id, wsMsg{Type: "state", Data: newStateView(id, st)})
	})
}

// sessionFromRequest validates the id parameter and resolves the session,
// writing the error response itself
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return nil, false
	}

	sess, err := s.session(r.Context(), id)
	if errors.Is(err, errSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	if err != nil {
		log.Printf("api: open session %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to open session")
		return nil, false
	}
	return sess, true
}

// publishActivations drains a session's ability activations to its views
func (s *Server) publishActivations(sess *game.Session) []game.AbilityActivation {
	activations := sess.DrainActivations()
	for _, a := range activations {
		s.hub.Publish(sess.ID, wsMsg{Type: "ability", Data: a})
	}
	return activations
}

// health reports liveness
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: "ok"})
}

// login exchanges a role secret for a token
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role        mw.Role `json:"role"`
		CharacterID string  `json:"characterId"`
		Secret      string  `json:"secret"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var actor mw.Actor
	switch req.Role {
	case mw.RoleGM:
		if !secretMatches(req.Secret, s.gmSecret) {
			writeError(w, http.StatusUnauthorized, "Wrong game master secret")
			return
		}
		actor = mw.Actor{Role: mw.RoleGM}
	case mw.RolePlayer:
		if err := validation.ValidateCharacterID(req.CharacterID); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid character ID")
			return
		}
		if !secretMatches(req.Secret, s.playerSecrets[req.CharacterID]) {
			writeError(w, http.StatusUnauthorized, "Wrong secret for this character")
			return
		}
		actor = mw.Actor{Role: mw.RolePlayer, CharacterID: req.CharacterID}
	default:
		writeError(w, http.StatusBadRequest, "Role must be 'gm' or 'player'")
		return
	}

	token, expires, err := s.auth.IssueToken(actor)
	if err != nil {
		log.Printf("api: issue token: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"token":       token,
			"expiresAt":   expires.UTC().Format(time.RFC3339),
			"role":        actor.Role,
			"characterId": actor.CharacterID,
		},
	})
}

// secretMatches compares in constant time; an unset secret never matches
func secretMatches(given, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// listSessions lists live and stored sessions
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]bool)
	s.sessionsMu.RLock()
	for id := range s.sessions {
		seen[id] = true
	}
	s.sessionsMu.RUnlock()

	if s.store != nil {
		stored, err := s.store.List(r.Context())
		if err != nil {
			log.Printf("api: list sessions: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list sessions")
			return
		}
		for _, id := range stored {
			seen[id] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	writeJSON(w, http.StatusOK, Response{Success: true, Data: ids})
}

// createSession starts a new game from the canonical roster
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()

	sess, err := game.OpenSession(r.Context(), id, s.sessionOptions())
	if err != nil {
		log.Printf("api: create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	s.sessionsMu.Lock()
	s.track(sess)
	s.sessionsMu.Unlock()

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    newStateView(id, sess.Snapshot()),
	})
}

// getSession returns the current state
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: newStateView(sess.ID, sess.Snapshot())})
}

// getLog returns the whole log, or its last n entries with ?tail=n
func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	st := sess.Snapshot()
	entries := st.Log.Entries()
	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "tail must be an integer")
			return
		}
		entries = st.Log.Tail(n)
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: entries})
}

// resolveTurn submits a GM directive and advances the story
func (s *Server) resolveTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Directive string `json:"directive"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateDirective(req.Directive); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, st := sess.ResolveTurn(r.Context(), req.Directive)
	writeIntent(w, sess.ID, outcome, st, s.publishActivations(sess))
}

// setActive opens another character's turn
func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		CharacterID string `json:"characterId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	outcome, st := sess.SetActiveCharacter(r.Context(), req.CharacterID)
	writeIntent(w, sess.ID, outcome, st, nil)
}

// submitAction records a player's move
func (s *Server) submitAction(w http.ResponseWriter, r *http.Request) {
	actor, _ := mw.ActorFrom(r.Context())
	if actor.Role != mw.RolePlayer {
		writeError(w, http.StatusForbidden, "players only")
		return
	}

	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateAction(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, st := sess.SubmitAction(r.Context(), actor.CharacterID, req.Text)
	writeIntent(w, sess.ID, outcome, st, nil)
}

// restart resets the session to the canonical start
func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	st := sess.Restart(r.Context())
	writeIntent(w, sess.ID, game.OutcomeAccepted, st, nil)
}

// serveWS upgrades to a websocket that receives state and ability pushes
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the error response
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	actor, _ := mw.ActorFrom(r.Context())
	log.Printf("ws: connect session=%s role=%s character=%s from=%s", sess.ID, actor.Role, actor.CharacterID, r.RemoteAddr)
	s.hub.Serve(sess.ID, conn, wsMsg{Type: "state", Data: newStateView(sess.ID, sess.Snapshot())})
	log.Printf("ws: closed session=%s", sess.ID)
}

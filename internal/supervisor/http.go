package supervisor

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/advisory"
	"github.com/flightcore/copilot/internal/queue"
)

// Server is the ground-station HTTP control surface (spec §6): a
// status endpoint, a JWT-authenticated override endpoint, and a
// websocket live feed of LiveSnapshot values. The broadcast-hub shape
// is grounded on the teacher's internal/livefeed.LiveFeedStreamer,
// repurposed from telemetry fan-out to this LiveSnapshot's fan-out.
type Server struct {
	sup         *Supervisor
	advisory    *advisory.Client
	jwtSecret   []byte
	logger      *logrus.Entry

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan LiveSnapshot
}

// NewServer builds the HTTP control surface bound to a Supervisor and
// the JWT signing secret used to validate override requests.
// advisoryClient may be nil, in which case /advisory is unavailable.
func NewServer(sup *Supervisor, advisoryClient *advisory.Client, jwtSecret []byte, logger *logrus.Entry) *Server {
	return &Server{
		sup:       sup,
		advisory:  advisoryClient,
		jwtSecret: jwtSecret,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan LiveSnapshot),
	}
}

// Router builds the chi router for this server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/status", s.handleStatus)
	r.Get("/ws/live", s.handleLiveFeed)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/overrides", s.handleOverride)
		r.Post("/taxi-clearance", s.handleTaxiClearance)
		r.Post("/advisory", s.handleAdvisory)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.sup.LatestSnapshot())
}

type overrideRequest struct {
	Axis       string `json:"axis"`
	DurationMs int64  `json:"durationMs"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	s.sup.RegisterOverride(queue.OverrideAxis(strings.ToUpper(req.Axis)), time.Duration(req.DurationMs)*time.Millisecond)
	w.WriteHeader(http.StatusAccepted)
}

type taxiClearanceRequest struct {
	ICAO    string  `json:"icao"`
	Runway  string  `json:"runway"`
	FromLat float64 `json:"fromLat"`
	FromLon float64 `json:"fromLon"`
}

func (s *Server) handleTaxiClearance(w http.ResponseWriter, r *http.Request) {
	var req taxiClearanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	s.sup.RequestTaxiClearance(req.ICAO, req.Runway, req.FromLat, req.FromLon)
	w.WriteHeader(http.StatusAccepted)
}

type advisoryRequest struct {
	Message string `json:"message"`
}

// handleAdvisory proxies a ground-station prompt to the LLM advisory
// service and returns its classified result (spec §6's on_advisory
// callback, surfaced here as a request/response instead of a push
// since the HTTP surface has no server-initiated channel besides the
// live-feed websocket).
func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	if s.advisory == nil {
		http.Error(w, "advisory service not configured", http.StatusServiceUnavailable)
		return
	}
	var req advisoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	adv := s.advisory.Request(req.Message)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(adv)
}

// authenticate enforces a JWT bearer token on the ground-station
// control API, distinct from the in-sim pilot controls that never
// touch this HTTP surface.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLiveFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("live feed upgrade failed")
		}
		return
	}

	ch := make(chan LiveSnapshot, 10)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(r.Context())
	go s.readPump(conn, cancel)
	s.writePump(ctx, conn, ch)

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, ch chan LiveSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

// Broadcast pushes the latest snapshot to every connected live-feed
// client, dropping it for any client whose buffer is full rather than
// blocking the tick loop.
func (s *Server) Broadcast(snap LiveSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.clients {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Package tracking streams ride animation frames to websocket subscribers.
package tracking

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"car-rental/internal/respond"
	"car-rental/pkg/logger"
	"car-rental/pkg/metrics"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is one animation step of a ride. Final marks the last frame a ride
// will send.
type Frame struct {
	RideID string  `json:"ride_id"`
	Phase  string  `json:"phase"` // "walk", "drive" or "cancelled"
	Step   int     `json:"step"`
	Total  int     `json:"total"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	State  string  `json:"state,omitempty"`
	Final  bool    `json:"final,omitempty"`
	TS     int64   `json:"ts"`
}

type frameConn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v any) error
}

// subscriber serialises writes; gorilla/websocket allows one writer at a time.
type subscriber struct {
	mu sync.Mutex
	ws frameConn
}

func (s *subscriber) send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(f)
}

// write expects s.mu held.
func (s *subscriber) write(f Frame) error {
	s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(f)
}

// Hub fans frames out to the subscribers of each ride. It remembers the last
// frame of every running ride so a late subscriber starts from the car's
// current position.
type Hub struct {
	log logger.Logger

	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	last   map[string]Frame
	exists func(rideID string) bool
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		log:  log,
		subs: make(map[string]map[*subscriber]struct{}),
		last: make(map[string]Frame),
	}
}

// RequireRide makes HandleWS answer 404 for ride ids exists does not know.
func (h *Hub) RequireRide(exists func(rideID string) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exists = exists
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/rides/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a ride until the
// client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	rideID := chi.URLParam(r, "id")
	h.mu.RLock()
	exists := h.exists
	h.mu.RUnlock()
	if exists != nil && !exists(rideID) {
		respond.Message(w, http.StatusNotFound, "ride not found")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", logger.Error(err))
		return
	}
	sub := &subscriber{ws: ws}
	log := h.log.With(logger.String("ride_id", rideID))

	metrics.TrackingSubscribers.Inc()
	log.Debug("ws client connected")
	if err := h.join(rideID, sub); err != nil {
		log.Debug("ws replay failed", logger.Error(err))
	}

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.unsubscribe(rideID, sub)
	ws.Close()
	metrics.TrackingSubscribers.Dec()
	log.Debug("ws client disconnected")
}

// join subscribes sub and replays the ride's last frame. sub stays locked
// from registration until the replay is written, so a concurrent Broadcast
// reaches it only after the older replayed frame.
func (h *Hub) join(rideID string, sub *subscriber) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	h.mu.Lock()
	if h.subs[rideID] == nil {
		h.subs[rideID] = make(map[*subscriber]struct{})
	}
	h.subs[rideID][sub] = struct{}{}
	last, ok := h.last[rideID]
	h.mu.Unlock()

	if !ok {
		return nil
	}
	return sub.write(last)
}

// Broadcast pushes f to every subscriber of its ride. Safe for concurrent
// calls.
func (h *Hub) Broadcast(f Frame) {
	if f.TS == 0 {
		f.TS = time.Now().Unix()
	}

	h.mu.Lock()
	if f.Final {
		delete(h.last, f.RideID)
	} else {
		h.last[f.RideID] = f
	}
	subs := make([]*subscriber, 0, len(h.subs[f.RideID]))
	for s := range h.subs[f.RideID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.send(f); err != nil {
			h.log.Debug("ws write failed", logger.String("ride_id", f.RideID), logger.Error(err))
		}
	}
}

// Subscribers returns the number of open connections for a ride.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[rideID])
}

func (h *Hub) unsubscribe(rideID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[rideID], sub)
	if len(h.subs[rideID]) == 0 {
		delete(h.subs, rideID)
	}
}

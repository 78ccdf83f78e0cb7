package e2e

import (
	"chat-stress/auth"
	"chat-stress/domain"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type user struct {
	id    string
	email string
	hash  string
}

type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) write(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(v)
}

// Backend is an in-process stand-in for the chat backend: register, login,
// one WebSocket per user id, out-of-band send and bulk delete.
type Backend struct {
	mu       sync.Mutex
	users    map[string]*user // map email -> user
	peers    map[string]*peer // map user id -> live connection
	signer   *auth.Signer
	admin    string
	upgrader websocket.Upgrader

	handshakeDelay time.Duration
	inFlight       atomic.Int64
	peakInFlight   atomic.Int64
	delivered      atomic.Int64
	bulkDeletes    atomic.Int64
}

func NewBackend(adminToken string, handshakeDelay time.Duration) *Backend {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &Backend{
		users:          make(map[string]*user),
		peers:          make(map[string]*peer),
		signer:         auth.NewSigner(secret, "chat-stress-e2e"),
		admin:          adminToken,
		handshakeDelay: handshakeDelay,
	}
}

func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", b.register)
	mux.HandleFunc("POST /login", b.login)
	mux.HandleFunc("GET /ws/{id}", b.websocket)
	mux.HandleFunc("POST /send", b.send)
	mux.HandleFunc("DELETE /users", b.deleteAll)
	mux.HandleFunc("DELETE /users/{email}", b.deleteOne)
	return mux
}

// Drop closes the server side of a user's connection, as a crashing peer would.
func (b *Backend) Drop(id string) bool {
	b.mu.Lock()
	p, ok := b.peers[id]
	b.mu.Unlock()
	if ok {
		_ = p.conn.Close()
	}
	return ok
}

func (b *Backend) Users() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.users)
}

func (b *Backend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.peers)
}

// PeakHandshakes is the highest number of WebSocket handshakes served at once.
func (b *Backend) PeakHandshakes() int {
	return int(b.peakInFlight.Load())
}

func (b *Backend) Delivered() int {
	return int(b.delivered.Load())
}

func (b *Backend) BulkDeletes() int {
	return int(b.bulkDeletes.Load())
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req domain.Identity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Validate() != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	// Hash outside the lock, registrations arrive in bursts
	hash, err := auth.HashPassword(req.Password, auth.CheapParams)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash password"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.Email]; ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "user already exists"})
		return
	}
	u := &user{id: uuid.NewString(), email: req.Email, hash: hash}
	b.users[u.email] = u
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.id, "email": u.email})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req domain.Identity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	if match, err := auth.ComparePassword(req.Password, u.hash); err != nil || !match {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := b.signer.GenerateToken(u.id, time.Hour)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "id": u.id})
}

func (b *Backend) websocket(w http.ResponseWriter, r *http.Request) {
	current := b.inFlight.Add(1)
	for {
		peak := b.peakInFlight.Load()
		if current <= peak || b.peakInFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(b.handshakeDelay)

	id := r.PathValue("id")
	subject, ok := b.authenticate(r)
	if !ok || subject != id {
		b.inFlight.Add(-1)
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	b.inFlight.Add(-1)
	if err != nil {
		return
	}

	p := &peer{conn: conn}
	b.mu.Lock()
	b.peers[id] = p
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		if b.peers[id] == p {
			delete(b.peers, id)
		}
		b.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var message domain.Message
		if err = conn.ReadJSON(&message); err != nil {
			return
		}
		b.route(id, message)
	}
}

func (b *Backend) send(w http.ResponseWriter, r *http.Request) {
	sender, ok := b.authenticate(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
		return
	}
	var message domain.Message
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil || message.Receiver == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	b.route(sender, message)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "sent"})
}

// route pushes the message to the receiver when it is connected.
func (b *Backend) route(sender string, message domain.Message) {
	b.mu.Lock()
	p, ok := b.peers[message.Receiver]
	b.mu.Unlock()
	if !ok {
		return
	}
	err := p.write(map[string]string{
		"sender":  sender,
		"content": message.Content,
	})
	if err == nil {
		b.delivered.Add(1)
	}
}

func (b *Backend) deleteAll(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	n := len(b.users)
	b.users = make(map[string]*user)
	b.mu.Unlock()
	b.bulkDeletes.Add(1)
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (b *Backend) deleteOne(w http.ResponseWriter, r *http.Request) {
	if bearer(r) != b.admin || b.admin == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "admin token required"})
		return
	}
	email := r.PathValue("email")
	b.mu.Lock()
	_, ok := b.users[email]
	delete(b.users, email)
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": email})
}

func (b *Backend) authenticate(r *http.Request) (string, bool) {
	subject, err := b.signer.ValidateToken(bearer(r))
	return subject, err == nil
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

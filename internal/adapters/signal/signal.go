package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/menza-chat/calld/internal/app"
	"github.com/menza-chat/calld/internal/core"
	"github.com/menza-chat/calld/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller handles one WS endpoint: it owns the pumps and translates
// wire events into call engine operations.
type Controller struct {
	Presence *core.PresenceRegistry
	Calls    *app.Registry
	Relay    *app.Relay
	Limiter  *StartLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(presence *core.PresenceRegistry, calls *app.Registry, relay *app.Relay, limiter *StartLimiter, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Presence:   presence,
		Calls:      calls,
		Relay:      relay,
		Limiter:    limiter,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
	}
}

type WsConn struct {
	id   core.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) ID() core.ConnID { return c.id }

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleCalls(ctx context.Context, c *gin.Context) {
	identity := domain.Identity(c.GetString("identity"))
	if identity == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	log.Info().Str("module", "signal").Str("identity", string(identity)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}

	conn := &WsConn{
		id:   core.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.Presence.Register(identity, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, identity, conn)
}

// emitTo fans an event out to every live connection of an identity.
func (ctl *Controller) emitTo(id domain.Identity, v any) {
	b, ok := ctl.marshal(v)
	if !ok {
		return
	}
	for _, conn := range ctl.Presence.ConnectionsFor(id) {
		_ = conn.TrySend(b)
	}
}

// broadcast delivers an event to every participant except the excluded one.
func (ctl *Controller) broadcast(participants []domain.Participant, except domain.Identity, v any) {
	b, ok := ctl.marshal(v)
	if !ok {
		return
	}
	for _, p := range participants {
		if p.Identity == except {
			continue
		}
		for _, conn := range ctl.Presence.ConnectionsFor(p.Identity) {
			_ = conn.TrySend(b)
		}
	}
}

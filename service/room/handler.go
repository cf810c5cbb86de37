package room

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"TalkGate/logger"
	"TalkGate/service/storage"
	"TalkGate/tools/errs"
	"TalkGate/tools/ids"
	"TalkGate/tools/safe"
	"TalkGate/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// DispatchPolicy decides what happens to a non-blank inbound frame.
type DispatchPolicy int

const (
	// EchoAndBroadcast echoes to the sender, then pushes the payload to every
	// room. This is the default; a production chat deployment likely wants
	// EchoOnly plus room-scoped pushes over HTTP.
	EchoAndBroadcast DispatchPolicy = iota
	// EchoOnly echoes back to the sender and stops there.
	EchoOnly
)

func ParsePolicy(s string) DispatchPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "echo_only") {
		return EchoOnly
	}
	return EchoAndBroadcast
}

// IdentityResolver maps a session id to its durable identity record. Backed
// by the redis identity store in production, stubbed in tests.
type IdentityResolver interface {
	Resolve(ctx context.Context, sessionID string) (*storage.Talker, error)
	Delete(ctx context.Context, sessionID string) error
}

type HandlerConfig struct {
	Policy      DispatchPolicy
	JWTSecret   []byte        // empty => token only checked for presence
	WriteWait   time.Duration // per-send deadline
	ResolveWait time.Duration // identity lookup timeout
}

func (c *HandlerConfig) norm() {
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.ResolveWait <= 0 {
		c.ResolveWait = 3 * time.Second
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler drives the Connecting -> Open -> Closed lifecycle of one
// endpoint. The transport supplies one goroutine per connection; the handler
// spawns none of its own besides fire-and-forget cleanup.
type WSHandler struct {
	reg      *Registry
	resolver IdentityResolver
	conf     HandlerConfig
}

func NewWSHandler(reg *Registry, resolver IdentityResolver, conf HandlerConfig) *WSHandler {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(resolver, "resolver")
	conf.norm()
	return &WSHandler{reg: reg, resolver: resolver, conf: conf}
}

// HandleWS serves GET /ws and GET /ws/:sid. Identity is settled before the
// upgrade: a missing or invalid token fails the handshake with 401 and the
// registry is never touched.
func (h *WSHandler) HandleWS(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return
	}
	if len(h.conf.JWTSecret) > 0 {
		opts := security.DefaultOptions(h.conf.JWTSecret)
		if _, err := security.Verify(opts, token); err != nil {
			logger.Infof("[WS] token rejected err=%v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
			return
		}
	}

	sid := c.Param("sid")
	if sid == "" {
		sid = ids.GenerateString()
	}

	talker, err := h.resolveIdentity(c, sid, token)
	if err != nil {
		logger.Infof("[WS] identity rejected session=%s err=%v", sid, err)
		switch {
		case errs.ErrUnauthorized.Is(err):
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		case errs.ErrIdentityNotFound.Is(err):
			c.AbortWithStatusJSON(http.StatusNotFound, errs.ErrIdentityNotFound)
		default:
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// usually a plain HTTP request hitting the ws path
		logger.Infof("[WS] upgrade error session=%s err=%v", sid, err)
		return
	}

	sess := NewSession(sid, talker.RoomID, talker.ChannelID, NewWSConn(ws, h.conf.WriteWait))
	h.reg.Admit(talker.RoomID, sid, sess)

	h.readLoop(ws, sess)

	// closed: withdraw exactly once, then drop the cached identity off the
	// critical path
	h.reg.Withdraw(sess.RoomID, sid)
	h.reg.DeleteRoomIfEmpty(sess.RoomID)
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.conf.ResolveWait)
		defer cancel()
		if derr := h.resolver.Delete(ctx, sid); derr != nil {
			logger.Infof("[WS] identity cleanup failed session=%s err=%v", sid, derr)
		}
	})
}

// resolveIdentity prefers the identity store. When the store has no record
// the handler falls back to room/channel query params, so clients can connect
// before the account side has seeded the cache.
func (h *WSHandler) resolveIdentity(c *gin.Context, sid, token string) (*storage.Talker, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.conf.ResolveWait)
	defer cancel()

	talker, err := h.resolver.Resolve(ctx, sid)
	if err == nil {
		if talker.RoomID == "" {
			return nil, errs.ErrUnauthorized.WrapMsg("identity has no room", "session_id", sid)
		}
		if talker.ChannelID == "" {
			talker.ChannelID = talker.RoomID
		}
		return talker, nil
	}
	if !errs.ErrIdentityNotFound.Is(err) {
		return nil, err
	}

	roomID := strings.TrimSpace(c.Query("room"))
	if roomID == "" {
		return nil, err
	}
	channelID := strings.TrimSpace(c.Query("channel"))
	if channelID == "" {
		channelID = roomID
	}
	return &storage.Talker{
		Token:     token,
		SessionID: sid,
		RoomID:    roomID,
		ChannelID: channelID,
	}, nil
}

func (h *WSHandler) readLoop(ws *websocket.Conn, sess *Session) {
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed session=%s err=%v", sess.SessionID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout session=%s err=%v", sess.SessionID, rerr)
			} else {
				// transport error: handled the same as a close
				logger.Infof("[WS] read err session=%s err=%v", sess.SessionID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		payload := strings.TrimSpace(string(data))
		if payload == "" {
			continue
		}
		h.dispatch(sess, payload)
	}
}

// dispatch routes one inbound payload: echo to the sender through its room,
// then (policy permitting) a global broadcast. Send failures are logged and
// never stop the loop.
func (h *WSHandler) dispatch(sess *Session, payload string) {
	rm, ok := h.reg.GetRoom(sess.RoomID)
	if !ok {
		logger.Infof("[WS] room gone session=%s room=%s", sess.SessionID, sess.RoomID)
		return
	}

	echo := fmt.Sprintf("server -> %s: %s", sess.ChannelID, payload)
	if err := rm.Unicast(sess.SessionID, echo); err != nil {
		logger.Infof("[WS] echo failed session=%s err=%v", sess.SessionID, err)
	}

	if h.conf.Policy == EchoAndBroadcast {
		h.reg.BroadcastAll(payload)
	}
}

package room

import (
	"io"
	"net/http"
	"strings"

	"TalkGate/logger"
	"TalkGate/tools/errs"
	"TalkGate/tools/safe"

	"github.com/gin-gonic/gin"
)

// PushResult is the JSON body returned by the push endpoints.
type PushResult struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// PushAPI lets out-of-process application code deliver messages into live
// rooms over plain HTTP.
type PushAPI struct {
	reg *Registry
}

func NewPushAPI(reg *Registry) *PushAPI {
	safe.MustNotNil(reg, "registry")
	return &PushAPI{reg: reg}
}

// HandleRoomPush serves POST /push/room/:roomId with the message as the raw
// request body.
func (p *PushAPI) HandleRoomPush(c *gin.Context) {
	roomID := c.Param("roomId")
	text, ok := readBody(c)
	if !ok {
		return
	}

	rm, found := p.reg.GetRoom(roomID)
	if !found {
		c.JSON(http.StatusOK, PushResult{Code: errs.ErrRoomNotFound.Code, Msg: errs.ErrRoomNotFound.Msg})
		return
	}
	rm.Broadcast(text)
	logger.Infof("[Push] room broadcast room=%s size=%d", roomID, rm.Size())
	c.JSON(http.StatusOK, PushResult{Code: http.StatusOK, Msg: "success"})
}

// HandleSessionPush serves POST /push/session/:roomId/:sid for a single
// recipient.
func (p *PushAPI) HandleSessionPush(c *gin.Context) {
	roomID := c.Param("roomId")
	sid := c.Param("sid")
	text, ok := readBody(c)
	if !ok {
		return
	}

	rm, found := p.reg.GetRoom(roomID)
	if !found {
		c.JSON(http.StatusOK, PushResult{Code: errs.ErrRoomNotFound.Code, Msg: errs.ErrRoomNotFound.Msg})
		return
	}
	if err := rm.Unicast(sid, text); err != nil {
		logger.Infof("[Push] unicast failed room=%s session=%s err=%v", roomID, sid, err)
		switch {
		case errs.ErrSessionNotFound.Is(err):
			c.JSON(http.StatusOK, PushResult{Code: errs.ErrSessionNotFound.Code, Msg: errs.ErrSessionNotFound.Msg})
		default:
			c.JSON(http.StatusOK, PushResult{Code: errs.ErrTransport.Code, Msg: errs.ErrTransport.Msg})
		}
		return
	}
	c.JSON(http.StatusOK, PushResult{Code: http.StatusOK, Msg: "success"})
}

// HandleBroadcastAll serves POST /push/all: global fan-out to every room.
func (p *PushAPI) HandleBroadcastAll(c *gin.Context) {
	text, ok := readBody(c)
	if !ok {
		return
	}
	p.reg.BroadcastAll(text)
	c.JSON(http.StatusOK, PushResult{Code: http.StatusOK, Msg: "success"})
}

// HandleOnline serves GET /stats/online. The counter is a monitoring signal,
// not an exact membership count.
func (p *PushAPI) HandleOnline(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":   http.StatusOK,
		"online": p.reg.Online(),
		"rooms":  p.reg.RoomCount(),
	})
}

func readBody(c *gin.Context) (string, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, PushResult{Code: http.StatusBadRequest, Msg: "read body failed"})
		return "", false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		c.JSON(http.StatusOK, PushResult{Code: http.StatusBadRequest, Msg: "empty message"})
		return "", false
	}
	return text, true
}

package room

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"TalkGate/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPushRouter(reg *Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	p := NewPushAPI(reg)
	r := gin.New()
	r.POST("/push/room/:roomId", p.HandleRoomPush)
	r.POST("/push/session/:roomId/:sid", p.HandleSessionPush)
	r.POST("/push/all", p.HandleBroadcastAll)
	r.GET("/stats/online", p.HandleOnline)
	return r
}

func doPush(t *testing.T, r *gin.Engine, method, path, body string) PushResult {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res PushResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestPushRoomBroadcast(t *testing.T) {
	reg := NewRegistry()
	a, fcA := newFakeSession("a", "r1")
	b, fcB := newFakeSession("b", "r1")
	reg.Admit("r1", "a", a)
	reg.Admit("r1", "b", b)
	r := newPushRouter(reg)

	res := doPush(t, r, http.MethodPost, "/push/room/r1", "breaking news")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "success", res.Msg)

	assert.Contains(t, fcA.Writes(), "breaking news")
	assert.Contains(t, fcB.Writes(), "breaking news")
}

func TestPushRoomNotFound(t *testing.T) {
	r := newPushRouter(NewRegistry())

	res := doPush(t, r, http.MethodPost, "/push/room/ghost", "hi")
	assert.Equal(t, errs.ErrRoomNotFound.Code, res.Code)
}

func TestPushSessionUnicast(t *testing.T) {
	reg := NewRegistry()
	a, fcA := newFakeSession("a", "r1")
	b, fcB := newFakeSession("b", "r1")
	reg.Admit("r1", "a", a)
	reg.Admit("r1", "b", b)
	r := newPushRouter(reg)

	res := doPush(t, r, http.MethodPost, "/push/session/r1/a", "just you")
	assert.Equal(t, http.StatusOK, res.Code)

	assert.Contains(t, fcA.Writes(), "just you")
	assert.NotContains(t, fcB.Writes(), "just you")
}

func TestPushSessionNotFound(t *testing.T) {
	reg := NewRegistry()
	a, _ := newFakeSession("a", "r1")
	reg.Admit("r1", "a", a)
	r := newPushRouter(reg)

	res := doPush(t, r, http.MethodPost, "/push/session/r1/ghost", "hi")
	assert.Equal(t, errs.ErrSessionNotFound.Code, res.Code)
}

func TestPushSessionTransportError(t *testing.T) {
	reg := NewRegistry()
	a, fcA := newFakeSession("a", "r1")
	reg.Admit("r1", "a", a)
	fcA.failWrite = true
	r := newPushRouter(reg)

	res := doPush(t, r, http.MethodPost, "/push/session/r1/a", "hi")
	assert.Equal(t, errs.ErrTransport.Code, res.Code)
}

func TestPushEmptyBodyRejected(t *testing.T) {
	r := newPushRouter(NewRegistry())

	res := doPush(t, r, http.MethodPost, "/push/room/r1", "   ")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestPushBroadcastAll(t *testing.T) {
	reg := NewRegistry()
	a, fcA := newFakeSession("a", "r1")
	b, fcB := newFakeSession("b", "r2")
	reg.Admit("r1", "a", a)
	reg.Admit("r2", "b", b)
	r := newPushRouter(reg)

	res := doPush(t, r, http.MethodPost, "/push/all", "to everyone")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, fcA.Writes(), "to everyone")
	assert.Contains(t, fcB.Writes(), "to everyone")
}

func TestStatsOnline(t *testing.T) {
	reg := NewRegistry()
	a, _ := newFakeSession("a", "r1")
	reg.Admit("r1", "a", a)
	r := newPushRouter(reg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats/online", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Code   int   `json:"code"`
		Online int64 `json:"online"`
		Rooms  int   `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(1), res.Online)
	assert.Equal(t, 1, res.Rooms)
}

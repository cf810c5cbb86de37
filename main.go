package main

import (
	"os"

	config "TalkGate/global/config"
	"TalkGate/logger"
	mid "TalkGate/middleware"
	"TalkGate/service/room"
	"TalkGate/service/storage"
	redis "TalkGate/service/storage/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := config.ConfigAll(); err != nil {
		logger.Errorf("[Main] startup failed: %v", err)
		os.Exit(1)
	}
	defer func() { _ = redis.CloseRedis() }()

	reg := room.NewRegistry()
	store := storage.NewIdentityStore(redis.GetRedis())
	handler := room.NewWSHandler(reg, store, room.HandlerConfig{
		Policy:    room.ParsePolicy(config.Global.Policy),
		JWTSecret: config.GetJwtSecret(),
		WriteWait: config.Global.WriteWait,
	})
	push := room.NewPushAPI(reg)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), mid.Origin(config.Global.AllowedOrigins))

	mid.GET(r, "/ws", handler.HandleWS, mid.RouteOpt{})
	mid.GET(r, "/ws/:sid", handler.HandleWS, mid.RouteOpt{})

	authOpt := mid.RouteOpt{IsAuth: true, Secret: config.GetJwtSecret()}
	mid.POST(r, "/push/room/:roomId", push.HandleRoomPush, authOpt)
	mid.POST(r, "/push/session/:roomId/:sid", push.HandleSessionPush, authOpt)
	mid.POST(r, "/push/all", push.HandleBroadcastAll, authOpt)
	mid.GET(r, "/stats/online", push.HandleOnline, mid.RouteOpt{})

	logger.Infof("[Main] talkgate listening on %s policy=%s", config.Global.Addr, config.Global.Policy)
	if err := r.Run(config.Global.Addr); err != nil {
		logger.Errorf("[Main] server exited: %v", err)
		os.Exit(1)
	}
}

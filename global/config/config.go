package config

import (
	"os"
	"strconv"
	"time"

	"TalkGate/logger"
	redis "TalkGate/service/storage/redis"
	ids "TalkGate/tools/ids"
)

type AppConfig struct {
	NodeId int64
	Addr   string // HTTP/WS listen address

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JwtSecret string // empty => handshake only checks token presence

	Policy      string // echo_and_broadcast | echo_only
	WriteWait   time.Duration
	IdentityTTL time.Duration

	AllowedOrigins []string // empty => allow all
}

var Global = AppConfig{
	NodeId:        100,
	Addr:          ":8885",
	RedisAddr:     "127.0.0.1:6379",
	RedisPassword: "",
	RedisDB:       0,
	Policy:        "echo_and_broadcast",
	WriteWait:     5 * time.Second,
	IdentityTTL:   2 * time.Hour,
}

func ConfigAll() error {
	loadEnv()
	ConfigIds()
	return ConfigRedis()
}

func ConfigIds() {
	logger.Infof("[Config] id generator node=%d", Global.NodeId)
	ids.SetNodeID(Global.NodeId)
}

func ConfigRedis() error {
	c := redis.Config{
		Addr:     Global.RedisAddr,
		Password: Global.RedisPassword,
		DB:       Global.RedisDB,
	}
	if err := redis.InitRedis(c); err != nil {
		logger.Errorf("[Config] redis init failed addr=%s err=%v", c.Addr, err)
		return err
	}
	logger.Infof("[Config] redis ready addr=%s db=%d", c.Addr, c.DB)
	return nil
}

func GetJwtSecret() []byte {
	if Global.JwtSecret == "" {
		return nil
	}
	return []byte(Global.JwtSecret)
}

// env overrides, all optional
func loadEnv() {
	if v := os.Getenv("TALKGATE_ADDR"); v != "" {
		Global.Addr = v
	}
	if v := os.Getenv("TALKGATE_REDIS_ADDR"); v != "" {
		Global.RedisAddr = v
	}
	if v := os.Getenv("TALKGATE_REDIS_PASSWORD"); v != "" {
		Global.RedisPassword = v
	}
	if v := os.Getenv("TALKGATE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.RedisDB = n
		}
	}
	if v := os.Getenv("TALKGATE_JWT_SECRET"); v != "" {
		Global.JwtSecret = v
	}
	if v := os.Getenv("TALKGATE_POLICY"); v != "" {
		Global.Policy = v
	}
	if v := os.Getenv("TALKGATE_NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			Global.NodeId = n
		}
	}
}

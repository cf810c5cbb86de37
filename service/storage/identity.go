package storage

import (
	"context"
	"time"

	"TalkGate/tools/errs"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
)

// Talker is the durable identity record behind a live connection. It is
// written at login time by the account side and resolved here by session id.
type Talker struct {
	Token     string `mapstructure:"token" json:"token"`
	UserID    string `mapstructure:"user_id" json:"user_id"`
	SessionID string `mapstructure:"session_id" json:"session_id"`
	RoomID    string `mapstructure:"room_id" json:"room_id"`
	ChannelID string `mapstructure:"channel_id" json:"channel_id"`
}

// identity key: talkgate:identity:<session_id>
// Value: hash of Talker fields, TTL bounds how long a stale login survives.
func identityKey(sessionID string) string { return "talkgate:identity:" + sessionID }

type IdentityStore struct {
	rdb *redis.Client
}

func NewIdentityStore(rdb *redis.Client) *IdentityStore {
	return &IdentityStore{rdb: rdb}
}

// Save writes the identity record and renews its TTL (ttl <= 0 means no expiry).
func (s *IdentityStore) Save(ctx context.Context, t *Talker, ttl time.Duration) error {
	if t == nil || t.SessionID == "" {
		return errs.New("talker/session_id empty")
	}
	key := identityKey(t.SessionID)
	fields := map[string]interface{}{
		"token":      t.Token,
		"user_id":    t.UserID,
		"session_id": t.SessionID,
		"room_id":    t.RoomID,
		"channel_id": t.ChannelID,
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return errs.WrapMsg(err, "hset identity", "session_id", t.SessionID)
	}
	if ttl > 0 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return errs.WrapMsg(err, "expire identity", "session_id", t.SessionID)
		}
	}
	return nil
}

// Resolve looks up the identity record for a session id.
// A missing record yields ErrIdentityNotFound.
func (s *IdentityStore) Resolve(ctx context.Context, sessionID string) (*Talker, error) {
	vals, err := s.rdb.HGetAll(ctx, identityKey(sessionID)).Result()
	if err != nil {
		return nil, errs.WrapMsg(err, "hgetall identity", "session_id", sessionID)
	}
	if len(vals) == 0 {
		return nil, errs.ErrIdentityNotFound.WrapMsg("", "session_id", sessionID)
	}

	var t Talker
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &t,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	if err := dec.Decode(vals); err != nil {
		return nil, errs.WrapMsg(err, "decode identity", "session_id", sessionID)
	}
	return &t, nil
}

// Delete drops the identity record; removing an absent key is a no-op.
func (s *IdentityStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, identityKey(sessionID)).Err(); err != nil {
		return errs.WrapMsg(err, "del identity", "session_id", sessionID)
	}
	return nil
}

package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	onlineSet     = "chat:online"
	markerPrefix  = "chat:online:"
	defaultMarker = 90 * time.Second
)

// Store mirrors which users currently hold a live websocket into Redis, so
// the back-office REST and report code can answer "who is online" without
// reaching into the signaling process.
//
// Every online user has a member in the chat:online set plus a
// chat:online:<user> marker key with a TTL. Markers are refreshed from
// heartbeat pongs; a process crash therefore leaves stale set members for at
// most one marker TTL, after which Online() drops them.
type Store struct {
	rdc       *redis.Client
	markerTTL time.Duration
}

func NewStore(rdc *redis.Client) *Store {
	return &Store{rdc: rdc, markerTTL: defaultMarker}
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	pipe := s.rdc.TxPipeline()
	pipe.SAdd(ctx, onlineSet, userID)
	pipe.Set(ctx, markerPrefix+userID, 1, s.markerTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	pipe := s.rdc.TxPipeline()
	pipe.SRem(ctx, onlineSet, userID)
	pipe.Del(ctx, markerPrefix+userID)
	_, err := pipe.Exec(ctx)
	return err
}

// Refresh extends the marker TTL; called when a heartbeat pong arrives.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	return s.rdc.Expire(ctx, markerPrefix+userID, s.markerTTL).Err()
}

// Online returns the user ids with a live marker, pruning set members whose
// marker has expired.
func (s *Store) Online(ctx context.Context) ([]string, error) {
	members, err := s.rdc.SMembers(ctx, onlineSet).Result()
	if err != nil || len(members) == 0 {
		return nil, err
	}

	pipe := s.rdc.Pipeline()
	cmds := make([]*redis.IntCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.Exists(ctx, markerPrefix+m)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, err
	}

	online := make([]string, 0, len(members))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			online = append(online, members[i])
			continue
		}
		if err := s.rdc.SRem(ctx, onlineSet, members[i]).Err(); err != nil {
			zap.L().Warn("presence.prune", zap.String("user_id", members[i]), zap.Error(err))
		}
	}
	return online, nil
}

package statestore

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the clustered Store, letting sticky-session reselection stay
// consistent across multiple gateway processes fronting the same services.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (r *Redis) GetSticky(cookieName, ticket string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serverID, err := r.client.Get(ctx, key(cookieName, ticket)).Result()
	if err != nil {
		return "", false
	}
	return serverID, true
}

func (r *Redis) PutSticky(cookieName, ticket, serverID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r.client.Set(ctx, key(cookieName, ticket), serverID, r.ttl)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// nodesSetKey is the set of node IDs that have ever heartbeat through this
// client, used to enumerate membership since Redis has no native SCAN-free
// "list keys matching a prefix with their values" op.
const nodesSetKey = "trafficcop:nodes"

// RedisNodeRegistry is the clustered NodeRegistry: every node's record is a
// String value under its own TTL'd key (so a crashed node's membership
// expires on its own without a reaper), with nodesSetKey tracking every ID
// ever seen so Nodes can enumerate and prune expired members.
type RedisNodeRegistry struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisNodeRegistry(addr, password string, db int, nodeTimeout time.Duration) *RedisNodeRegistry {
	if nodeTimeout <= 0 {
		nodeTimeout = DefaultTTL
	}
	return &RedisNodeRegistry{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		timeout: nodeTimeout,
	}
}

func (r *RedisNodeRegistry) Heartbeat(node Node) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	node.LastHeartbeat = time.Now()
	payload := node.ID + "|" + node.AdvertiseAddress + "|" + node.Status.String() + "|" + node.LastHeartbeat.Format(time.RFC3339Nano)
	if err := r.client.Set(ctx, nodeKey(node.ID), payload, r.timeout).Err(); err != nil {
		return err
	}
	return r.client.SAdd(ctx, nodesSetKey, node.ID).Err()
}

func (r *RedisNodeRegistry) Nodes() ([]Node, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ids, err := r.client.SMembers(ctx, nodesSetKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		payload, err := r.client.Get(ctx, nodeKey(id)).Result()
		if err == redis.Nil {
			r.client.SRem(ctx, nodesSetKey, id)
			continue
		}
		if err != nil {
			continue
		}
		n, ok := parseNodePayload(payload)
		if !ok {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *RedisNodeRegistry) SetDraining(nodeID string, draining bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload, err := r.client.Get(ctx, nodeKey(nodeID)).Result()
	if err != nil {
		return err
	}
	n, ok := parseNodePayload(payload)
	if !ok {
		return nil
	}
	if draining {
		n.Status = NodeDraining
	} else {
		n.Status = NodeActive
	}
	return r.Heartbeat(n)
}

func parseNodePayload(payload string) (Node, bool) {
	parts := strings.SplitN(payload, "|", 4)
	if len(parts) != 4 {
		return Node{}, false
	}
	n := Node{ID: parts[0], AdvertiseAddress: parts[1]}
	if parts[2] == "draining" {
		n.Status = NodeDraining
	} else {
		n.Status = NodeActive
	}
	if ts, err := time.Parse(time.RFC3339Nano, parts[3]); err == nil {
		n.LastHeartbeat = ts
	}
	return n, true
}

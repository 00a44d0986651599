package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "eventstage/pkg/app_errors"

	"github.com/redis/go-redis/v9"
)

// TicketInventoryGate keeps an approximate remaining count per tier in Redis
// so sold-out tiers can be rejected without touching the database. Postgres
// stays the source of truth; the gate may only over-admit, never under-admit
// for long, because it is resynced from committed counts.
type TicketInventoryGate interface {
	// 預熱：只在 key 不存在時寫入剩餘數量
	Seed(ctx context.Context, tierID string, remaining int) error
	// 覆寫：以資料庫數值覆蓋剩餘數量
	Set(ctx context.Context, tierID string, remaining int) error
	// 扣減：Lua 腳本確保原子性；未預熱回傳 ErrGateMiss，不足回傳 ErrSoldOut
	Acquire(ctx context.Context, tierID string, quantity int) error
	// 回滾：資料庫失敗時歸還數量
	Release(ctx context.Context, tierID string, quantity int) error
	Remaining(ctx context.Context, tierID string) (int, error)
	Drop(ctx context.Context, tierID string) error
}

type TicketInventoryGateImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTicketInventoryGate(client *redis.Client, ttl time.Duration) TicketInventoryGate {
	return &TicketInventoryGateImpl{
		client: client,
		ttl:    ttl,
	}
}

const (
	acquireScript = `
		local remaining = redis.call('HGET', KEYS[1], 'remaining')
		if not remaining then
			return -2
		end
		local qty = tonumber(ARGV[1])
		if tonumber(remaining) < qty then
			return -1
		end
		return redis.call('HINCRBY', KEYS[1], 'remaining', -qty)
	`

	releaseScript = `
		if redis.call('EXISTS', KEYS[1]) == 0 then
			return 0
		end
		redis.call('HINCRBY', KEYS[1], 'remaining', tonumber(ARGV[1]))
		return 1
	`

	seedScript = `
		if redis.call('HSETNX', KEYS[1], 'remaining', ARGV[1]) == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[2])
			return 1
		end
		return 0
	`

	setScript = `
		redis.call('HSET', KEYS[1], 'remaining', ARGV[1])
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
		return 1
	`
)

func GateKey(tierID string) string {
	return fmt.Sprintf("tier:%s:gate", tierID)
}

func (g *TicketInventoryGateImpl) Seed(ctx context.Context, tierID string, remaining int) error {
	return g.client.Eval(ctx, seedScript, []string{GateKey(tierID)}, remaining, g.ttl.Milliseconds()).Err()
}

func (g *TicketInventoryGateImpl) Set(ctx context.Context, tierID string, remaining int) error {
	return g.client.Eval(ctx, setScript, []string{GateKey(tierID)}, remaining, g.ttl.Milliseconds()).Err()
}

func (g *TicketInventoryGateImpl) Acquire(ctx context.Context, tierID string, quantity int) error {
	code, err := g.client.Eval(ctx, acquireScript, []string{GateKey(tierID)}, quantity).Int64()
	if err != nil {
		return err
	}

	switch {
	case code >= 0:
		return nil
	case code == -1:
		return apperrors.ErrSoldOut
	case code == -2:
		return apperrors.ErrGateMiss
	default:
		return errors.New("unexpected gate result")
	}
}

func (g *TicketInventoryGateImpl) Release(ctx context.Context, tierID string, quantity int) error {
	return g.client.Eval(ctx, releaseScript, []string{GateKey(tierID)}, quantity).Err()
}

func (g *TicketInventoryGateImpl) Remaining(ctx context.Context, tierID string) (int, error) {
	val, err := g.client.HGet(ctx, GateKey(tierID), "remaining").Int()
	if errors.Is(err, redis.Nil) {
		return -1, apperrors.ErrGateMiss
	}
	return val, err
}

func (g *TicketInventoryGateImpl) Drop(ctx context.Context, tierID string) error {
	return g.client.Del(ctx, GateKey(tierID)).Err()
}

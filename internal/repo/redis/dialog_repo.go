package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	dialogsvc "github.com/commie294/T4t/internal/services/dialog"
)

const dialogPrefix = "dialogs:"

// DialogRepo keeps the per-user dialogue scratch state in redis so an open
// dialogue survives process restarts. The TTL is a staleness guard, not a
// correctness requirement.
type DialogRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewDialogRepo(client *goredis.Client, ttl time.Duration) *DialogRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DialogRepo{client: client, ttl: ttl}
}

func (r *DialogRepo) Get(ctx context.Context, userID int64) (dialogsvc.State, error) {
	if r.client == nil {
		return dialogsvc.State{}, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return dialogsvc.State{}, fmt.Errorf("invalid user id")
	}

	raw, err := r.client.Get(ctx, dialogKey(userID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return dialogsvc.State{}, dialogsvc.ErrStateNotFound
		}
		return dialogsvc.State{}, fmt.Errorf("get dialog state: %w", err)
	}

	var state dialogsvc.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return dialogsvc.State{}, fmt.Errorf("decode dialog state: %w", err)
	}
	if state.Values == nil {
		state.Values = map[string]string{}
	}

	return state, nil
}

func (r *DialogRepo) Put(ctx context.Context, userID int64, state dialogsvc.State) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode dialog state: %w", err)
	}

	if err := r.client.Set(ctx, dialogKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("put dialog state: %w", err)
	}

	return nil
}

func (r *DialogRepo) Delete(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}

	if err := r.client.Del(ctx, dialogKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete dialog state: %w", err)
	}

	return nil
}

func dialogKey(userID int64) string {
	return dialogPrefix + strconv.FormatInt(userID, 10)
}

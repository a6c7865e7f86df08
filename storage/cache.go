// Package storage caches board reads from the remote API in Redis.
package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/internal/consts"
)

const taskIndexKey = consts.TasksKeyPrefix + "index"

// Backend is the subset of the API client the cache sits in front of.
type Backend interface {
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	ListTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	AddComment(ctx context.Context, taskID, text string) (domain.Task, error)
	DeleteComment(ctx context.Context, taskID, commentID string) error
	InviteMember(ctx context.Context, boardID, email string) ([]domain.Member, error)
}

// Cache wraps a Backend with Redis-backed caching for board and task reads.
// Writes go straight to the backend and evict the affected board.
type Cache struct {
	base   Backend
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func NewCache(base Backend, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

func (c *Cache) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	var b domain.Board
	if c.load(ctx, boardKey(boardID), &b) {
		return b, nil
	}
	b, err := c.base.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	c.store(ctx, boardKey(boardID), b)
	return b, nil
}

func (c *Cache) ListTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.load(ctx, tasksKey(boardID), &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if c.store(ctx, tasksKey(boardID), tasks) {
		c.index(ctx, boardID, tasks)
	}
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	t, err := c.base.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evictBoard(ctx, in.BoardID)
	return t, nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	out, err := c.base.UpdateTask(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	c.evictTask(ctx, t.ID, out.BoardID)
	return out, nil
}

func (c *Cache) UpdateTaskStatus(ctx context.Context, taskID string, status domain.Status) (domain.Task, error) {
	out, err := c.base.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return domain.Task{}, err
	}
	c.evictTask(ctx, taskID, out.BoardID)
	return out, nil
}

func (c *Cache) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.base.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	c.evictTask(ctx, taskID, "")
	return nil
}

func (c *Cache) AddComment(ctx context.Context, taskID, text string) (domain.Task, error) {
	out, err := c.base.AddComment(ctx, taskID, text)
	if err != nil {
		return domain.Task{}, err
	}
	c.evictTask(ctx, taskID, out.BoardID)
	return out, nil
}

func (c *Cache) DeleteComment(ctx context.Context, taskID, commentID string) error {
	if err := c.base.DeleteComment(ctx, taskID, commentID); err != nil {
		return err
	}
	c.evictTask(ctx, taskID, "")
	return nil
}

func (c *Cache) InviteMember(ctx context.Context, boardID, email string) ([]domain.Member, error) {
	members, err := c.base.InviteMember(ctx, boardID, email)
	if err != nil {
		return nil, err
	}
	if c.redis != nil {
		_ = c.redis.Del(ctx, boardKey(boardID)).Err()
	}
	return members, nil
}

// Evict drops everything cached for boardID. Push events call it so the next
// reload sees fresh data.
func (c *Cache) Evict(ctx context.Context, boardID string) {
	c.evictBoard(ctx, boardID)
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Debug("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) bool {
	if c.redis == nil || c.ttl == 0 {
		return false
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return false
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Debug("cache write failed")
		return false
	}
	return true
}

// index remembers which board each cached task belongs to so writes that
// only know the task ID can still evict the right list.
func (c *Cache) index(ctx context.Context, boardID string, tasks []domain.Task) {
	if len(tasks) == 0 {
		return
	}
	fields := make([]any, 0, 2*len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			continue
		}
		fields = append(fields, t.ID, boardID)
	}
	if len(fields) == 0 {
		return
	}
	_ = c.redis.HSet(ctx, taskIndexKey, fields...).Err()
}

func (c *Cache) evictTask(ctx context.Context, taskID, boardID string) {
	if c.redis == nil {
		return
	}
	if boardID == "" {
		boardID, _ = c.redis.HGet(ctx, taskIndexKey, taskID).Result()
	}
	_ = c.redis.HDel(ctx, taskIndexKey, taskID).Err()
	c.evictBoard(ctx, boardID)
}

func (c *Cache) evictBoard(ctx context.Context, boardID string) {
	if c.redis == nil || boardID == "" {
		return
	}
	_, _ = c.redis.Del(ctx, tasksKey(boardID), boardKey(boardID)).Result()
}

func tasksKey(boardID string) string {
	return consts.TasksKeyPrefix + boardID
}

func boardKey(boardID string) string {
	return consts.BoardKeyPrefix + boardID
}

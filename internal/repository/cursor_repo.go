package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CursorRepository - интерфейс для хранения позиции в ленте изменений.
type CursorRepository interface {
	GetOffset(ctx context.Context, feed string) (string, error)
	SaveOffset(ctx context.Context, feed, offset string) error
}

// MemoryCursorRepository хранит позицию в памяти процесса.
type MemoryCursorRepository struct {
	mu      sync.Mutex
	offsets map[string]string
}

// NewMemoryCursorRepository создаёт новый экземпляр MemoryCursorRepository.
func NewMemoryCursorRepository() *MemoryCursorRepository {
	return &MemoryCursorRepository{offsets: make(map[string]string)}
}

func (r *MemoryCursorRepository) GetOffset(_ context.Context, feed string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offsets[feed], nil
}

func (r *MemoryCursorRepository) SaveOffset(_ context.Context, feed, offset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offsets[feed] = offset
	return nil
}

// PostgresCursorRepository - реализация CursorRepository для базы данных.
type PostgresCursorRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresCursorRepository создаёт новый экземпляр PostgresCursorRepository.
func NewPostgresCursorRepository(db *pgxpool.Pool) *PostgresCursorRepository {
	return &PostgresCursorRepository{DB: db}
}

// GetOffset возвращает сохраненную позицию ленты или пустую строку.
func (r *PostgresCursorRepository) GetOffset(ctx context.Context, feed string) (string, error) {
	var offset string
	err := r.DB.QueryRow(ctx, `SELECT offset_value FROM feed_cursor WHERE feed = $1`, feed).Scan(&offset)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read feed cursor: %w", err)
	}
	return offset, nil
}

// SaveOffset сохраняет позицию ленты.
func (r *PostgresCursorRepository) SaveOffset(ctx context.Context, feed, offset string) error {
	_, err := r.DB.Exec(ctx, `
       INSERT INTO feed_cursor (feed, offset_value, updated_at)
       VALUES ($1, $2, now())
       ON CONFLICT (feed) DO UPDATE SET offset_value = EXCLUDED.offset_value, updated_at = EXCLUDED.updated_at
   `, feed, offset)
	if err != nil {
		return fmt.Errorf("failed to save feed cursor: %w", err)
	}
	return nil
}

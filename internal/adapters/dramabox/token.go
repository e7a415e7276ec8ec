package dramabox

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"dramabox-bot/internal/domain"
	"dramabox-bot/internal/infra/metrics"
)

// TokenState: состояние общего токена API.
type TokenState int

const (
	// TokenStateNone: токена нет, следующий запрос инициирует получение.
	TokenStateNone TokenState = iota
	// TokenStateValid: токен получен и ещё не отклонён API.
	TokenStateValid
	// TokenStateRefreshing: идёт получение токена.
	TokenStateRefreshing
)

func (s TokenState) String() string {
	switch s {
	case TokenStateValid:
		return "valid"
	case TokenStateRefreshing:
		return "refreshing"
	default:
		return "none"
	}
}

// AcquireFunc получает новый токен у API.
type AcquireFunc func(ctx context.Context) (string, error)

// TokenManager выдаёт общий токен и обновляет его после отказа API.
// Параллельные получения схлопываются в один запрос к bootstrap.
type TokenManager struct {
	store   domain.TokenStore
	acquire AcquireFunc
	log     zerolog.Logger

	group      singleflight.Group
	mu         sync.Mutex
	refreshing bool
}

// NewTokenManager создаёт менеджер токена.
func NewTokenManager(store domain.TokenStore, acquire AcquireFunc, log zerolog.Logger) *TokenManager {
	return &TokenManager{store: store, acquire: acquire, log: log}
}

// Token возвращает текущий токен, получая новый при его отсутствии.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	token, ok, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: чтение хранилища: %w", domain.ErrTokenAcquisition, err)
	}
	if ok {
		return token, nil
	}

	ch := m.group.DoChan("token", func() (any, error) {
		// Получение общее для всех ожидающих, поэтому не зависит от отмены первого вызова.
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	if token, ok, err := m.store.Load(ctx); err == nil && ok {
		return token, nil
	}

	m.setRefreshing(true)
	defer m.setRefreshing(false)

	token, err := m.acquire(ctx)
	metrics.ObserveTokenRefresh(err)
	if err != nil {
		m.log.Error().Err(err).Msg("dramabox: не удалось получить токен")
		return "", fmt.Errorf("%w: %w", domain.ErrTokenAcquisition, err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: пустой токен", domain.ErrTokenAcquisition)
	}
	if err := m.store.Save(ctx, token); err != nil {
		return "", fmt.Errorf("%w: сохранение токена: %w", domain.ErrTokenAcquisition, err)
	}
	m.log.Info().Msg("dramabox: получен новый токен")
	return token, nil
}

// Invalidate сбрасывает токен, отклонённый API. Если токен уже заменён, вызов ничего не делает.
func (m *TokenManager) Invalidate(ctx context.Context, token string) {
	cleared, err := m.store.CompareAndClear(ctx, token)
	if err != nil {
		m.log.Error().Err(err).Msg("dramabox: не удалось сбросить токен")
		return
	}
	if cleared {
		m.log.Debug().Msg("dramabox: токен отклонён API и сброшен")
	}
}

// State возвращает текущее состояние токена.
func (m *TokenManager) State(ctx context.Context) TokenState {
	m.mu.Lock()
	refreshing := m.refreshing
	m.mu.Unlock()
	if refreshing {
		return TokenStateRefreshing
	}
	if _, ok, err := m.store.Load(ctx); err == nil && ok {
		return TokenStateValid
	}
	return TokenStateNone
}

func (m *TokenManager) setRefreshing(v bool) {
	m.mu.Lock()
	m.refreshing = v
	m.mu.Unlock()
}

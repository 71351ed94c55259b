package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"medig/internal/store"
)

const themeKey = "theme"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("invalid theme")

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// PreferenceService 界面偏好（目前只有主题）
type PreferenceService struct {
	kv     store.KV
	logger *zap.Logger
}

func NewPreferenceService(kv store.KV, logger *zap.Logger) *PreferenceService {
	return &PreferenceService{kv: kv, logger: logger}
}

// Theme 未设置或值非法时返回 light
func (s *PreferenceService) Theme(ctx context.Context) Theme {
	raw, err := s.kv.Get(ctx, themeKey)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Failed to read theme", zap.Error(err))
		}
		return ThemeLight
	}
	if t := Theme(raw); t.Valid() {
		return t
	}
	return ThemeLight
}

func (s *PreferenceService) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return ErrInvalidTheme
	}
	return s.kv.Set(ctx, themeKey, string(t), 0)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"medig/internal/store"
)

const (
	sessionKey = "medig-user"

	// VerifyUnavailableMessage 网络/服务异常时展示给用户的固定文案
	VerifyUnavailableMessage = "Không thể kết nối server"

	msPerDay = 86400000
)

// KeyRejectedError 服务端明确拒绝 key
type KeyRejectedError struct {
	Reason string
}

func (e *KeyRejectedError) Error() string { return "key rejected: " + e.Reason }

// Session 已验证的 AI 会话，exp 为毫秒时间戳
type Session struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
	Exp     int64  `json:"exp"`
}

// SessionView 带剩余天数与到期日期（dd/mm/yyyy）
type SessionView struct {
	Session
	DaysLeft int    `json:"daysLeft"`
	ExpDate  string `json:"expDate"`
}

type AuthService struct {
	kv       store.KV
	verifier KeyVerifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(kv store.KV, verifier KeyVerifier, logger *zap.Logger) *AuthService {
	return &AuthService{kv: kv, verifier: verifier, logger: logger, now: time.Now}
}

// VerifyKey 远端校验 key，成功后持久化会话
func (s *AuthService) VerifyKey(ctx context.Context, key string) (*SessionView, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, &KeyRejectedError{Reason: "empty key"}
	}
	res, err := s.verifier.Verify(ctx, key)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		s.logger.Info("Key rejected", zap.String("reason", res.Error))
		return nil, &KeyRejectedError{Reason: res.Error}
	}

	sess := Session{Name: "AI User", Picture: "robot-icon", Email: "verified-key", Exp: res.Exp}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	ttl := time.UnixMilli(sess.Exp).Sub(s.now())
	if ttl <= 0 {
		return nil, &KeyRejectedError{Reason: "key already expired"}
	}
	if err := s.kv.Set(ctx, sessionKey, string(raw), ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	v := s.view(sess)
	return &v, nil
}

// Current 读取会话；过期或内容损坏视为未登录并清除
func (s *AuthService) Current(ctx context.Context) (*SessionView, error) {
	raw, err := s.kv.Get(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("Corrupt session, logging out", zap.Error(err))
		_ = s.kv.Delete(ctx, sessionKey)
		return nil, nil
	}
	if s.now().UnixMilli() > sess.Exp {
		s.logger.Info("Session expired, logging out")
		_ = s.kv.Delete(ctx, sessionKey)
		return nil, nil
	}
	v := s.view(sess)
	return &v, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	return s.kv.Delete(ctx, sessionKey)
}

func (s *AuthService) view(sess Session) SessionView {
	left := float64(sess.Exp-s.now().UnixMilli()) / msPerDay
	return SessionView{
		Session:  sess,
		DaysLeft: int(math.Max(0, math.Ceil(left))),
		ExpDate:  time.UnixMilli(sess.Exp).In(s.now().Location()).Format("02/01/2006"),
	}
}

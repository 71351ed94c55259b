package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrRateLimited       = errors.New("ai proxy rate limited (429)")
	ErrUpstream          = errors.New("ai proxy request failed")
	ErrMalformedResponse = errors.New("ai proxy returned malformed response")
	ErrEmptyCompletion   = errors.New("ai proxy returned empty completion")
	ErrVerifyUnavailable = errors.New("key verification unavailable")
)

// Completer 文本生成（单轮 prompt → 文本）
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// KeyVerifier 远端 key 校验
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (*VerifyResult, error)
}

// GeminiPart / GeminiContent 代理转发给 Gemini 的请求体
type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Text 取 candidates[0].content.parts[0].text，缺失时为空串
func (r GeminiResponse) Text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// VerifyResult /verify 响应；exp 为毫秒时间戳
type VerifyResult struct {
	Success bool   `json:"success"`
	Exp     int64  `json:"exp"`
	Error   string `json:"error"`
}

// ProxyClient AI 代理客户端（/gemini、/verify）
type ProxyClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewProxyClient 创建代理客户端
func NewProxyClient(baseURL string, timeout time.Duration, retryCount int, logger *zap.Logger) *ProxyClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ProxyClient{httpClient: client, logger: logger}
}

func (c *ProxyClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := GeminiRequest{Contents: []GeminiContent{{
		Role:  "user",
		Parts: []GeminiPart{{Text: prompt}},
	}}}

	c.logger.Debug("Calling AI proxy", zap.Int("prompt_len", len(prompt)))

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post("/gemini")
	if err != nil {
		c.logger.Error("AI proxy call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		c.logger.Warn("AI proxy rate limited")
		return "", ErrRateLimited
	}
	if resp.IsError() {
		c.logger.Error("AI proxy returned error status", zap.Int("status_code", resp.StatusCode()))
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	var out GeminiResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		c.logger.Error("Failed to unmarshal AI proxy response", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.Text(), nil
}

func (c *ProxyClient) Verify(ctx context.Context, key string) (*VerifyResult, error) {
	var out VerifyResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"key": key}).
		Post("/verify")
	if err != nil {
		c.logger.Error("Key verification call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
	}
	if resp.IsError() {
		c.logger.Error("Key verification returned error status", zap.Int("status_code", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", ErrVerifyUnavailable, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
	}
	return &out, nil
}

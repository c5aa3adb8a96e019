// Package oracle 將生成式文字模型包裝成回傳 JSON 的價格查詢介面。
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrorKind 錯誤類別
type ErrorKind string

const (
	// KindMalformedResponse 模型回應不是預期的 JSON
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindBackendFailure 模型無法連線、逾時或配額不足
	KindBackendFailure ErrorKind = "backend_failure"
)

// ErrUnexpectedShape 回應是合法 JSON 但型別不符
var ErrUnexpectedShape = errors.New("unexpected JSON shape")

// Error 查詢錯誤
type Error struct {
	Kind ErrorKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMalformedResponse:
		return fmt.Sprintf("oracle malformed response: %v", e.Err)
	default:
		return fmt.Sprintf("oracle backend failure: %v", e.Err)
	}
}

// Unwrap 取得原始錯誤
func (e *Error) Unwrap() error {
	return e.Err
}

// IsMalformed 是否為回應格式錯誤
func IsMalformed(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindMalformedResponse
}

// IsBackendFailure 是否為後端錯誤
func IsBackendFailure(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindBackendFailure
}

// Backend 文字生成後端
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendFunc 讓一般函式實作 Backend
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Complete 實作 Backend
func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Oracle 價格查詢轉接器
type Oracle struct {
	backend Backend
}

// New 建立轉接器
func New(backend Backend) *Oracle {
	return &Oracle{backend: backend}
}

// Query 送出 prompt 並將回應解析為單一 JSON 值
func (o *Oracle) Query(ctx context.Context, prompt string) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Oracle backend panic recovered", zap.Any("panic", r))
			value = nil
			err = &Error{Kind: KindBackendFailure, Err: fmt.Errorf("backend panic: %v", r)}
		}
	}()

	text, err := o.backend.Complete(ctx, prompt)
	if err != nil {
		return nil, &Error{Kind: KindBackendFailure, Err: err}
	}

	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, &Error{Kind: KindMalformedResponse, Raw: text, Err: errors.New("empty response")}
	}

	var v interface{}
	if err := common.ParseJSON(cleaned, &v); err != nil {
		common.LogWarn("Oracle 回應 JSON 解析失敗",
			zap.Error(err),
			zap.Int("raw_length", len(text)),
		)
		return nil, &Error{Kind: KindMalformedResponse, Raw: text, Err: err}
	}
	return v, nil
}

// QueryObject 查詢並要求回應為 JSON 物件
func (o *Oracle) QueryObject(ctx context.Context, prompt string) (map[string]interface{}, error) {
	v, err := o.Query(ctx, prompt)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("%w: expected object, got %s", ErrUnexpectedShape, jsonKind(v))}
	}
	return obj, nil
}

// QueryArray 查詢並要求回應為 JSON 陣列
func (o *Oracle) QueryArray(ctx context.Context, prompt string) ([]interface{}, error) {
	v, err := o.Query(ctx, prompt)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("%w: expected array, got %s", ErrUnexpectedShape, jsonKind(v))}
	}
	return arr, nil
}

// StripCodeFence 去除包圍回應的 ``` 標記與可選的語言標籤
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// 第一行只剩語言標籤時整行移除
		tag := strings.TrimSpace(text[:nl])
		if isFenceTag(tag) {
			text = text[nl+1:]
		}
	} else {
		text = stripInlineTag(strings.TrimLeft(text, " \t"))
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// stripInlineTag 移除單行 fence 開頭的語言標籤，例如 ```JSON {"a":1}```
func stripInlineTag(text string) string {
	end := strings.IndexAny(text, " \t{[\"")
	if end <= 0 {
		return text
	}
	tag := text[:end]
	switch strings.ToLower(tag) {
	case "true", "false", "null":
		return text
	}
	if c := tag[0]; !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') || !isFenceTag(tag) {
		return text
	}
	return text[end:]
}

func isFenceTag(tag string) bool {
	if tag == "" {
		return true
	}
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// NormalizePrice 將模型回傳的價格轉為非負、四捨五入到分的數值，無法轉換時為 0
func NormalizePrice(v interface{}) float64 {
	p, ok := common.ParsePrice(v)
	if !ok {
		return 0
	}
	return p
}

// ParsePrice 與 NormalizePrice 相同，但以 false 表示無法轉換
func ParsePrice(v interface{}) (float64, bool) {
	return common.ParsePrice(v)
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}

// Package validator decides whether a decoded request body may be forwarded to a sink.
package validator

import "errors"

var (
	// ErrNotContainer payload 不是 JSON 对象或数组
	ErrNotContainer = errors.New("payload must be a JSON object or array")
	// ErrEmpty payload 是空对象或空数组
	ErrEmpty = errors.New("payload must not be empty")
)

// Check 返回 payload 不可转发的原因，可转发时返回 nil。
// payload 应为 encoding/json 解码到 any 的结果。
func Check(payload any) error {
	switch v := payload.(type) {
	case map[string]any:
		if len(v) == 0 {
			return ErrEmpty
		}
		return nil
	case []any:
		if len(v) == 0 {
			return ErrEmpty
		}
		return nil
	default:
		return ErrNotContainer
	}
}

// Validate 当 payload 为非空对象或非空数组时返回 true
func Validate(payload any) bool {
	return Check(payload) == nil
}

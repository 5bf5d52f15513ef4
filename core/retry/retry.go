// Package retry 提供带指数退避的重试包装。
// 对象存储的列表调用最容易被限流，统一走这里重试。
package retry

import (
	"context"
	"errors"
	"time"

	"PlayFM/logger"
)

// permanentError 标记不应重试的错误
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 把错误标记为永久性：Do 遇到后立即放弃重试并返回原错误。
// 用于权限、不存在这类重试注定无效的失败。
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Do 执行 op，失败后按 baseDelay·2^attempt 退避重试，不加抖动。
// attempts<=1 时不重试。重试耗尽时返回最后一次的错误，绝不吞掉。
// 等待期间 ctx 被取消则立即返回 ctx 的错误。
func Do[T any](ctx context.Context, attempts int, baseDelay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		// 最后一次失败直接返回，不再等待
		if i == attempts-1 {
			break
		}

		wait := baseDelay << uint(i)
		logger.Warn("操作失败，等待重试",
			logger.Int("attempt", i+1),
			logger.Int("maxAttempts", attempts),
			logger.Duration("wait", wait),
			logger.ErrorField(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

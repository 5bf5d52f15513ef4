// Package batch 提供分批并发执行器。
// 把一批对请求对象存储的调用限制在固定并发数内，避免触发服务端限流。
package batch

import (
	"context"
	"sync"
	"time"

	"PlayFM/logger"
)

// Result 单个条目的处理结果。Skip 为 true 表示该条目处理失败被跳过，
// 调用方应丢弃它；整批永远不会因为单条失败而失败。
type Result[R any] struct {
	Value R
	Skip  bool
}

// Map 把 items 按 size 分成连续的组，组内并发执行 fn，整组完成后
// 暂停 pause 再开始下一组（最后一组之后不暂停）。
// 返回值保持 items 的原始顺序，包含跳过条目。
func Map[T, R any](ctx context.Context, items []T, size int, pause time.Duration, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if size < 1 {
		size = 1
	}

	results := make([]Result[R], len(items))
	totalBatches := (len(items) + size - 1) / size

	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		logger.Debug("开始处理批次",
			logger.Int("batch", start/size+1),
			logger.Int("totalBatches", totalBatches),
			logger.Int("batchSize", end-start),
		)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				value, err := fn(ctx, items[i])
				if err != nil {
					results[i] = Result[R]{Skip: true}
					return
				}
				results[i] = Result[R]{Value: value}
			}(i)
		}
		wg.Wait()

		// 批次之间稍作停顿，防止压垮对象存储的API
		if end < len(items) && pause > 0 {
			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				// 取消后剩余条目全部标记为跳过
				for i := end; i < len(items); i++ {
					results[i] = Result[R]{Skip: true}
				}
				return results
			case <-timer.C:
			}
		}
	}

	return results
}

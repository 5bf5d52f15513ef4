// Package notify 把面向用户的提示从错误分类中解耦出来。
// 加载失败的具体呈现方式（弹窗、toast、日志）由接入方决定。
package notify

import "PlayFM/logger"

// Level 提示级别
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notifier 向用户投递一条提示消息
type Notifier interface {
	Notify(level Level, msg string)
}

// LogNotifier 默认实现，把提示写入日志
type LogNotifier struct{}

func (LogNotifier) Notify(level Level, msg string) {
	switch level {
	case LevelError:
		logger.Error(msg)
	case LevelWarn:
		logger.Warn(msg)
	default:
		logger.Info(msg)
	}
}

// Discard 丢弃所有提示
type Discard struct{}

func (Discard) Notify(Level, string) {}

package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrorKind 列表失败的分类，决定提示给用户的补救建议
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not-found"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindAccessBlocked ErrorKind = "access-blocked"
	KindRetryLimit    ErrorKind = "retry-limit-exceeded"
	KindQuotaExceeded ErrorKind = "quota-exceeded"
	KindUnknown       ErrorKind = "unknown"
)

// Error 带分类的存储访问错误。单个文件级别的失败不会以这个形式
// 向外传播，只有前缀本身不可达时才会。
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s (path=%s): %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient 是否值得重试。权限、不存在、配额类错误重试不会改变结果。
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindNotFound, KindUnauthorized, KindQuotaExceeded:
		return false
	}
	return true
}

// Hint 返回该类错误的补救建议，投递给通知层
func (e *Error) Hint() string {
	switch e.Kind {
	case KindNotFound:
		return "请检查路径是否正确、文件夹是否存在于存储桶中"
	case KindUnauthorized:
		return "没有访问权限，请检查存储桶的访问策略"
	case KindAccessBlocked:
		return "跨域访问被拒绝，请检查存储桶的CORS配置"
	case KindRetryLimit:
		return "重试次数已用尽，请稍后再试或检查网络连接"
	case KindQuotaExceeded:
		return "存储配额已超出"
	default:
		return "未知错误，请查看日志"
	}
}

// classifyErr 根据底层错误推导错误分类。
// exhausted 表示该错误是重试耗尽后的最后一次错误。
func classifyErr(path string, err error, exhausted bool) *Error {
	var stErr *Error
	if errors.As(err, &stErr) {
		return stErr
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return &Error{Kind: KindNotFound, Path: path, Err: err}
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return &Error{Kind: KindUnauthorized, Path: path, Err: err}
	case "QuotaExceeded":
		return &Error{Kind: KindQuotaExceeded, Path: path, Err: err}
	}

	msg := err.Error()
	if strings.Contains(msg, "CORS") || strings.Contains(msg, "Forbidden") {
		return &Error{Kind: KindAccessBlocked, Path: path, Err: err}
	}

	// 网络类错误经过完整重试后归为重试耗尽
	if exhausted {
		return &Error{Kind: KindRetryLimit, Path: path, Err: err}
	}
	return &Error{Kind: KindUnknown, Path: path, Err: err}
}

package xerr

import (
	"errors"
	"fmt"
)

// Kind 错误分类，决定上层怎么处理：
// transient 重试（退避后重连），auth 重试但必须显式上报，
// decode 丢帧计数，fatal 只在启动期出现（配置错误）。
type Kind int

const (
	KindTransient Kind = iota
	KindAuth
	KindDecode
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindDecode:
		return "decode"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type KindError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *KindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Msg)
}

func (e *KindError) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &KindError{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) error {
	return &KindError{Kind: kind, Msg: msg, Err: err}
}

// KindOf 取错误分类；没标记的一律按 transient 处理，瞬时错误永不致命。
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindTransient
}

func IsAuth(err error) bool  { return KindOf(err) == KindAuth }
func IsFatal(err error) bool { return KindOf(err) == KindFatal }

package capability

import (
	"errors"
	"fmt"
)

// ValidationError 请求数据非法或缺失，不重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// TransientProviderError 服务商超时或临时故障，可按策略重试
type TransientProviderError struct {
	Stage string
	Err   error
}

func (e *TransientProviderError) Error() string {
	return fmt.Sprintf("transient failure in stage %s: %v", e.Stage, e.Err)
}

func (e *TransientProviderError) Unwrap() error {
	return e.Err
}

// IsTransient 判断错误是否可重试
func IsTransient(err error) bool {
	var te *TransientProviderError
	return errors.As(err, &te)
}

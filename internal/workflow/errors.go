package workflow

import (
	"errors"
	"fmt"
)

// WalletValidationError 收款钱包非法或所属NGO已被标记，放款被阻断
type WalletValidationError struct {
	Wallet string
	Reason string
}

func (e *WalletValidationError) Error() string {
	return fmt.Sprintf("wallet %s rejected: %s", e.Wallet, e.Reason)
}

// DuplicateEventError 幂等声明已被占用，副作用已执行过；
// 不是失败，记录后丢弃即可
type DuplicateEventError struct {
	Key string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("duplicate event for key %s, side effect already executed", e.Key)
}

// ConsistencyError 事件与实例当前状态不匹配，拒绝处理且不改变状态
type ConsistencyError struct {
	InstanceID string
	State      string
	Event      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("event %s does not match instance %s in state %s", e.Event, e.InstanceID, e.State)
}

// IsDuplicate 判断是否为重复事件
func IsDuplicate(err error) bool {
	var de *DuplicateEventError
	return errors.As(err, &de)
}

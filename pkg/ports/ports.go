// Package ports 提供临时 TCP 端口分配
package ports

import (
	"fmt"
	"net"
)

// AllocationError 表示向操作系统申请端口失败
type AllocationError struct {
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate local port: %v", e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Allocate 申请一个当前空闲的本地 TCP 端口
//
// 实现方式：在回环地址上绑定端口 0（由内核指派），读出实际端口号后
// 立刻释放监听器。释放和使用者真正绑定之间存在竞态窗口，调用方应当
// 在拿到端口后尽快占用。
//
// 返回：
//
//	int: 可用端口号
//	error: 申请失败时为 *AllocationError，不会向外传播 panic
func Allocate() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, &AllocationError{Err: err}
	}

	defer func() {
		_ = l.Close()
	}()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, &AllocationError{Err: fmt.Errorf("unexpected listener address %q", l.Addr())}
	}

	return addr.Port, nil
}

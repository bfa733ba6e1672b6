package supervisor

import (
	"encoding/binary"
	"fmt"
	"net"

	"outrider/pkg/codec"
)

// ClientRun 向控制面发送一次请求并等待响应
//
// 参数：
//
//	socket: 守护进程的 unix socket 路径
//	msg: 请求动作
//
// 返回：
//
//	服务端响应；连接、编解码或传输失败时返回错误
func ClientRun(socket string, msg *codec.ActionMsg) (*codec.ResponseMsg, error) {
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connect control socket %s: %w", socket, err)
	}

	sock := &ctlSocket{conn: conn}
	defer func() {
		_ = sock.Close()
	}()

	payload, err := codec.Encode(msg)
	if err != nil {
		return nil, err
	}

	head := make([]byte, frameHeadLen)
	binary.BigEndian.PutUint64(head, uint64(len(payload)))

	if err = sock.Send(head); err != nil {
		return nil, err
	}
	if err = sock.Send(payload); err != nil {
		return nil, err
	}

	head, err = sock.Recv(frameHeadLen)
	if err != nil {
		return nil, fmt.Errorf("read response head: %w", err)
	}

	size := binary.BigEndian.Uint64(head)
	if size > frameMaxLen {
		return nil, fmt.Errorf("response frame of %d bytes exceeds %d byte limit", size, frameMaxLen)
	}

	payload, err = sock.Recv(size)
	if err != nil {
		return nil, fmt.Errorf("read response payload: %w", err)
	}

	return codec.Decode[codec.ResponseMsg](payload)
}

package supervisor

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"outrider/pkg/codec"
	"outrider/pkg/logger"
)

// 帧格式：8 字节大端长度 + CBOR 负载，请求响应各一帧
const frameHeadLen = 8

// frameMaxLen 单帧负载上限，帧头声明的长度先校验后分配
const frameMaxLen = 1 << 20

type ctlSocket struct {
	conn net.Conn
}

func (s *ctlSocket) Recv(l uint64) ([]byte, error) {
	buf := make([]byte, l)

	if _, err := io.ReadFull(s.conn, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

func (s *ctlSocket) Send(data []byte) error {
	_, err := s.conn.Write(data)

	return err
}

func (s *ctlSocket) Close() error {
	return s.conn.Close()
}

// Session 一次控制面会话，对应一条连接上的一问一答
type Session struct {
	sv     *Supervisor
	sock   *ctlSocket
	logger *zap.SugaredLogger
}

func NewSession(s *Supervisor, c net.Conn) *Session {
	return &Session{
		sv:     s,
		sock:   &ctlSocket{conn: c},
		logger: logger.Logging("outrider-serv"),
	}
}

// Handle 处理一次控制请求并返回会话结果
//
// 返回 ResponseShutdown 表示客户端请求停机，由服务端把请求转交
// 守护进程的信号路径，响应本身在转交前就已发出。
func (se *Session) Handle() codec.ResponseCtl {
	defer func() {
		_ = se.sock.Close()
	}()

	head, err := se.sock.Recv(frameHeadLen)
	if err != nil {
		return se.sendResponse(se.errorResponse(fmt.Errorf("read request head: %w", err)))
	}

	size := binary.BigEndian.Uint64(head)
	if size > frameMaxLen {
		return se.sendResponse(se.errorResponse(fmt.Errorf("request frame of %d bytes exceeds %d byte limit", size, frameMaxLen)))
	}

	payload, err := se.sock.Recv(size)
	if err != nil {
		return se.sendResponse(se.errorResponse(fmt.Errorf("read request payload: %w", err)))
	}

	msg, err := codec.Decode[codec.ActionMsg](payload)
	if err != nil {
		return se.sendResponse(se.errorResponse(err))
	}

	var res *codec.ResponseMsg
	var result codec.ResponseCtl

	switch msg.Action {
	case codec.ActionStatus:
		res = se.doStatus(msg)
		result = codec.ResponseNormal
	case codec.ActionEvents:
		res = se.doEvents(msg)
		result = codec.ResponseNormal
	case codec.ActionShutdown:
		res = &codec.ResponseMsg{Code: 200, Message: codec.ActionResponse[codec.ActionShutdown]}
		result = codec.ResponseShutdown
	default:
		res = &codec.ResponseMsg{Code: 404, Message: fmt.Sprintf("Unknown action %d", msg.Action)}
		result = codec.ResponseMsgErr
	}

	return se.sendResponse(res, result)
}

func (se *Session) doStatus(msg *codec.ActionMsg) *codec.ResponseMsg {
	infos := se.sv.Snapshot()

	if len(msg.Names) > 0 {
		wanted := make(map[string]bool, len(msg.Names))
		for _, name := range msg.Names {
			wanted[name] = true
		}

		selected := make([]*codec.SidecarInfo, 0, len(msg.Names))
		for _, info := range infos {
			if wanted[info.Name] {
				selected = append(selected, info)
			}
		}
		infos = selected
	}

	return &codec.ResponseMsg{
		Code:     200,
		Message:  codec.ActionResponse[codec.ActionStatus],
		Sidecars: infos,
	}
}

func (se *Session) doEvents(msg *codec.ActionMsg) *codec.ResponseMsg {
	events, err := se.sv.opts.Journal.Recent(msg.Limit)
	if err != nil {
		res, _ := se.errorResponse(err)
		return res
	}

	return &codec.ResponseMsg{
		Code:    200,
		Message: codec.ActionResponse[codec.ActionEvents],
		Events:  events,
	}
}

func (se *Session) errorResponse(err error) (*codec.ResponseMsg, codec.ResponseCtl) {
	se.logger.Error(err)

	return &codec.ResponseMsg{Code: 500, Message: err.Error()}, codec.ResponseMsgErr
}

func (se *Session) sendResponse(res *codec.ResponseMsg, result codec.ResponseCtl) codec.ResponseCtl {
	buf, err := codec.Encode(res)
	if err != nil {
		se.logger.Error(err)
		return codec.ResponseMsgErr
	}

	head := make([]byte, frameHeadLen)
	binary.BigEndian.PutUint64(head, uint64(len(buf)))

	if err = se.sock.Send(head); err != nil {
		se.logger.Error(err)
		return codec.ResponseMsgErr
	}

	if err = se.sock.Send(buf); err != nil {
		se.logger.Error(err)
		return codec.ResponseMsgErr
	}

	return result
}

package supervisor

import (
	"errors"
	"net"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"outrider/pkg/codec"
	"outrider/pkg/logger"
	"outrider/pkg/utils"
)

// CtlServer 控制面服务端，监听 unix socket 并逐连接开会话
type CtlServer struct {
	sv     *Supervisor
	sock   net.Listener
	wg     sync.WaitGroup
	logger *zap.SugaredLogger
}

// NewCtlServer 在给定 unix socket 路径上创建控制面服务端
func NewCtlServer(s *Supervisor, socket string) (*CtlServer, error) {
	listener, err := net.Listen("unix", socket)
	if err != nil {
		return nil, err
	}

	return &CtlServer{
		sv:     s,
		sock:   listener,
		logger: logger.Logging("outrider-serv"),
	}, nil
}

// Close 关闭监听套接字，让阻塞中的 Accept 返回
func (s *CtlServer) Close() {
	_ = s.sock.Close()
}

// Listen 接受连接并为每条连接开一个会话协程
//
// 停机通过 utils.FinishChan 通知：守护进程投递一个令牌并关闭
// 监听套接字，循环在下一次迭代退出并等所有会话收尾。会话请求
// 停机时转交 utils.StopChan，走守护进程统一的信号路径。
func (s *CtlServer) Listen() {
	defer func() {
		_ = s.sock.Close()
	}()

SERVER:
	for {
		select {
		case <-utils.FinishChan:
			break SERVER
		default:
			conn, err := s.sock.Accept()
			if err != nil {
				// 套接字被关闭说明停机已经开始
				if errors.Is(err, net.ErrClosed) {
					break SERVER
				}
				s.logger.Error(err)
				continue
			}

			session := NewSession(s.sv, conn)

			s.wg.Add(1)
			go func(se *Session) {
				defer s.wg.Done()

				if se.Handle() == codec.ResponseShutdown {
					select {
					case utils.StopChan <- syscall.SIGTERM:
					default:
					}
				}
			}(session)
		}
	}

	s.wg.Wait()
	s.logger.Info("Supervisor control server is stopped")
}

package supervisor

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outrider/pkg/codec"
	"outrider/pkg/journal"
	"outrider/pkg/utils"
)

func startTestServer(t *testing.T, sv *Supervisor) string {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "ctl.sock")

	srv, err := NewCtlServer(sv, socket)
	require.NoError(t, err)

	go srv.Listen()
	t.Cleanup(srv.Close)

	return socket
}

func TestControlStatusRoundTrip(t *testing.T) {
	sv := NewSupervisor(testOptions())
	require.True(t, sv.Register(NewSidecar("alpha", "sidecars.alpha.path", "", "")))
	require.True(t, sv.Register(NewSidecar("beta", "sidecars.beta.path", "", "")))

	socket := startTestServer(t, sv)

	res, err := ClientRun(socket, &codec.ActionMsg{Action: codec.ActionStatus})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Code)
	require.Len(t, res.Sidecars, 2)
	assert.Equal(t, "alpha", res.Sidecars[0].Name)
	assert.Equal(t, codec.StateIdle, res.Sidecars[0].State)

	res, err = ClientRun(socket, &codec.ActionMsg{Action: codec.ActionStatus, Names: []string{"beta"}})
	require.NoError(t, err)
	require.Len(t, res.Sidecars, 1)
	assert.Equal(t, "beta", res.Sidecars[0].Name)
}

func TestControlEventsRoundTrip(t *testing.T) {
	j, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	opts := testOptions()
	opts.Journal = j
	sv := NewSupervisor(opts)

	require.NoError(t, j.Record(&codec.Event{Kind: codec.EventLaunch, Sidecar: "alpha", Pid: 42}))

	socket := startTestServer(t, sv)

	res, err := ClientRun(socket, &codec.ActionMsg{Action: codec.ActionEvents, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Code)
	require.Len(t, res.Events, 1)
	assert.Equal(t, codec.EventLaunch, res.Events[0].Kind)
	assert.Equal(t, "alpha", res.Events[0].Sidecar)
	assert.Equal(t, 42, res.Events[0].Pid)
}

func TestControlUnknownAction(t *testing.T) {
	sv := NewSupervisor(testOptions())

	socket := startTestServer(t, sv)

	res, err := ClientRun(socket, &codec.ActionMsg{Action: codec.ActionCtl(99)})
	require.NoError(t, err)
	assert.Equal(t, 404, res.Code)
}

func TestControlRejectsOversizedFrame(t *testing.T) {
	sv := NewSupervisor(testOptions())

	socket := startTestServer(t, sv)

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()

	// 帧头声明一个荒谬的负载长度，负载本身一个字节也不发
	head := make([]byte, frameHeadLen)
	binary.BigEndian.PutUint64(head, ^uint64(0))
	_, err = conn.Write(head)
	require.NoError(t, err)

	respHead := make([]byte, frameHeadLen)
	_, err = io.ReadFull(conn, respHead)
	require.NoError(t, err, "the session must answer instead of dying")

	body := make([]byte, binary.BigEndian.Uint64(respHead))
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)

	res, err := codec.Decode[codec.ResponseMsg](body)
	require.NoError(t, err)
	assert.Equal(t, 500, res.Code)

	// 坏帧之后服务端必须继续接受正常请求
	good, err := ClientRun(socket, &codec.ActionMsg{Action: codec.ActionStatus})
	require.NoError(t, err)
	assert.Equal(t, 200, good.Code)
}

func TestControlShutdownForwardsToStopChannel(t *testing.T) {
	// 清掉可能残留的旧令牌
	select {
	case <-utils.StopChan:
	default:
	}

	sv := NewSupervisor(testOptions())

	socket := startTestServer(t, sv)

	res, err := ClientRun(socket, &codec.ActionMsg{Action: codec.ActionShutdown})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Code)

	select {
	case sig := <-utils.StopChan:
		assert.Equal(t, syscall.SIGTERM, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown request was not forwarded to the stop channel")
	}
}

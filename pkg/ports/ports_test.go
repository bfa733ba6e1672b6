package ports

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateReturnsUsablePort(t *testing.T) {
	port, err := Allocate()
	require.NoError(t, err)
	require.Greater(t, port, 0)
	require.LessOrEqual(t, port, 65535)

	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err, "allocated port should be bindable right away")
	_ = l.Close()
}

func TestAllocateDistinctAcrossCalls(t *testing.T) {
	seen := make(map[int]bool)

	for i := 0; i < 8; i++ {
		port, err := Allocate()
		require.NoError(t, err)
		seen[port] = true
	}

	// the kernel cycles ephemeral ports, so a run of allocations
	// collapsing to a single number means we pinned something
	assert.Greater(t, len(seen), 1)
}

package memcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hlagg/memcache/internal/ketama"
)

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}.withDefaults()

	require.Equal(t, defaultReadBufSize, cfg.ReadBufSize)
	require.Equal(t, defaultWriteBufSize, cfg.WriteBufSize)
	require.Equal(t, defaultOpQueueMax, cfg.OpQueueMax)
	require.Equal(t, defaultBackoffMin, cfg.ReconnectBackoffMin)
	require.Equal(t, defaultBackoffMax, cfg.ReconnectBackoffMax)
	require.NotNil(t, cfg.Dialer)
	require.Equal(t, defaultDialTimeout, cfg.Dialer.Timeout)
}

func TestConfigWithDefaultsPreservesSetValues(t *testing.T) {
	cfg := Config{
		ReadBufSize:         1,
		WriteBufSize:        2,
		OpQueueMax:          3,
		ReconnectBackoffMin: time.Millisecond,
		ReconnectBackoffMax: time.Second,
	}.withDefaults()

	require.Equal(t, 1, cfg.ReadBufSize)
	require.Equal(t, 2, cfg.WriteBufSize)
	require.Equal(t, 3, cfg.OpQueueMax)
	require.Equal(t, time.Millisecond, cfg.ReconnectBackoffMin)
	require.Equal(t, time.Second, cfg.ReconnectBackoffMax)
}

func TestHashAlgorithmKindResolvesToKetamaFunctions(t *testing.T) {
	const key = "some-key"
	require.Equal(t, ketama.Native(key), HashNative.fn()(key))
	require.Equal(t, ketama.FNV1_32(key), HashFNV1_32.fn()(key))
	require.Equal(t, ketama.FNV1A_32(key), HashFNV1A_32.fn()(key))
	require.Equal(t, ketama.CRC(key), HashCRC.fn()(key))
}

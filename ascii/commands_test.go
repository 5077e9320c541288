package ascii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeStorage(t *testing.T) {
	got := EncodeStorage(CmdSet, "foo", 0, 0, []byte("bar"), false)
	assert.Equal(t, "set foo 0 0 3\r\nbar\r\n", string(got))
}

func TestEncodeStorage_Noreply(t *testing.T) {
	got := EncodeStorage(CmdAdd, "foo", 5, 60, []byte("xy"), true)
	assert.Equal(t, "add foo 5 60 2 noreply\r\nxy\r\n", string(got))
}

func TestEncodeCas(t *testing.T) {
	got := EncodeCas("foo", 0, 0, []byte("v3"), 42, false)
	assert.Equal(t, "cas foo 0 0 2 42\r\nv3\r\n", string(got))
}

func TestEncodeGet(t *testing.T) {
	assert.Equal(t, "get a\r\n", string(EncodeGet(CmdGet, []string{"a"})))
	assert.Equal(t, "gets a b c\r\n", string(EncodeGet(CmdGets, []string{"a", "b", "c"})))
}

func TestEncodeDelete(t *testing.T) {
	assert.Equal(t, "delete foo\r\n", string(EncodeDelete("foo", false)))
	assert.Equal(t, "delete foo noreply\r\n", string(EncodeDelete("foo", true)))
}

func TestEncodeMutate(t *testing.T) {
	assert.Equal(t, "incr counter 1\r\n", string(EncodeMutate(CmdIncr, "counter", 1, false)))
	assert.Equal(t, "decr counter 2\r\n", string(EncodeMutate(CmdDecr, "counter", 2, false)))
}

func TestEncodeFlushAll(t *testing.T) {
	assert.Equal(t, "flush_all\r\n", string(EncodeFlushAll(-1)))
	assert.Equal(t, "flush_all 30\r\n", string(EncodeFlushAll(30)))
}

func TestEncodeStats(t *testing.T) {
	assert.Equal(t, "stats\r\n", string(EncodeStats("")))
	assert.Equal(t, "stats slabs\r\n", string(EncodeStats("slabs")))
}

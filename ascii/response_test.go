package ascii

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadStatusLine(t *testing.T) {
	st, err := ReadStatusLine(reader("STORED\r\n"))
	require.NoError(t, err)
	assert.Equal(t, StatusStored, st)
}

func TestReadStatusLine_ClientError(t *testing.T) {
	_, err := ReadStatusLine(reader("CLIENT_ERROR bad data chunk\r\n"))
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad data chunk", ce.Message)
}

func TestReadStatusLine_ServerError(t *testing.T) {
	_, err := ReadStatusLine(reader("SERVER_ERROR out of memory\r\n"))
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "out of memory", se.Message)
}

func TestReadVersion(t *testing.T) {
	v, err := ReadVersion(reader("VERSION 1.6.21\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "1.6.21", v)
}

func TestReadMutateResponse(t *testing.T) {
	v, found, err := ReadMutateResponse(reader("10\r\n"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 10, v)

	_, found, err = ReadMutateResponse(reader("NOT_FOUND\r\n"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadGetResponse_Basic(t *testing.T) {
	blocks, err := ReadGetResponse(reader("VALUE foo 0 3\r\nbar\r\nEND\r\n"), false)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "foo", blocks[0].Key)
	assert.Equal(t, []byte("bar"), blocks[0].Data)
}

func TestReadGetResponse_MultipleWithCas(t *testing.T) {
	raw := "VALUE a 0 1 7\r\nx\r\nVALUE b 2 2 8\r\nyz\r\nEND\r\n"
	blocks, err := ReadGetResponse(reader(raw), true)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Key)
	assert.EqualValues(t, 7, blocks[0].Cas)
	assert.True(t, blocks[0].HasCas)
	assert.Equal(t, "b", blocks[1].Key)
	assert.EqualValues(t, 2, blocks[1].Flags)
}

func TestReadGetResponse_Empty(t *testing.T) {
	blocks, err := ReadGetResponse(reader("END\r\n"), false)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestReadStatsResponse(t *testing.T) {
	raw := "STAT pid 123\r\nSTAT uptime 45\r\nEND\r\n"
	stats, err := ReadStatsResponse(reader(raw))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, StatLine{Name: "pid", Value: "123"}, stats[0])
	assert.Equal(t, StatLine{Name: "uptime", Value: "45"}, stats[1])
}

func TestReadGetResponse_UnparsableLine(t *testing.T) {
	_, err := ReadGetResponse(reader("garbage\r\nEND\r\n"), false)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

package ascii

import (
	"bytes"
	"strconv"
)

// EncodeStorage builds a set/add/replace/append/prepend command.
//
//	<verb> <key> <flags> <exptime> <bytes> [noreply]\r\n<data>\r\n
func EncodeStorage(verb, key string, flags uint32, exptime int64, data []byte, noreply bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(verb)
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatUint(uint64(flags), 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(exptime, 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(data)))
	if noreply {
		buf.WriteString(" noreply")
	}
	buf.WriteString(CRLF)
	buf.Write(data)
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeCas builds a cas command.
//
//	cas <key> <flags> <exptime> <bytes> <cas>\r\n<data>\r\n
func EncodeCas(key string, flags uint32, exptime int64, data []byte, cas uint64, noreply bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(CmdCas)
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatUint(uint64(flags), 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(exptime, 10))
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(data)))
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatUint(cas, 10))
	if noreply {
		buf.WriteString(" noreply")
	}
	buf.WriteString(CRLF)
	buf.Write(data)
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeGet builds a get or gets command for one or more keys.
func EncodeGet(verb string, keys []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(verb)
	for _, k := range keys {
		buf.WriteByte(' ')
		buf.WriteString(k)
	}
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeDelete builds a delete command.
func EncodeDelete(key string, noreply bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(CmdDelete)
	buf.WriteByte(' ')
	buf.WriteString(key)
	if noreply {
		buf.WriteString(" noreply")
	}
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeMutate builds an incr or decr command.
func EncodeMutate(verb, key string, delta uint64, noreply bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(verb)
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatUint(delta, 10))
	if noreply {
		buf.WriteString(" noreply")
	}
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeFlushAll builds a flush_all command. delay < 0 means no delay
// argument is sent.
func EncodeFlushAll(delay int) []byte {
	var buf bytes.Buffer
	buf.WriteString(CmdFlushAll)
	if delay >= 0 {
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(delay))
	}
	buf.WriteString(CRLF)
	return buf.Bytes()
}

// EncodeVersion builds a version command.
func EncodeVersion() []byte {
	return []byte(CmdVersion + CRLF)
}

// EncodeStats builds a stats command, with an optional sub-argument.
func EncodeStats(arg string) []byte {
	var buf bytes.Buffer
	buf.WriteString(CmdStats)
	if arg != "" {
		buf.WriteByte(' ')
		buf.WriteString(arg)
	}
	buf.WriteString(CRLF)
	return buf.Bytes()
}

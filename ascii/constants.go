package ascii

// CRLF terminates every protocol line.
const CRLF = "\r\n"

// Command verbs, written as the first token of a request line.
const (
	CmdSet      = "set"
	CmdAdd      = "add"
	CmdReplace  = "replace"
	CmdAppend   = "append"
	CmdPrepend  = "prepend"
	CmdCas      = "cas"
	CmdGet      = "get"
	CmdGets     = "gets"
	CmdDelete   = "delete"
	CmdIncr     = "incr"
	CmdDecr     = "decr"
	CmdFlushAll = "flush_all"
	CmdVersion  = "version"
	CmdStats    = "stats"
)

// Status is a single-line server response status.
type Status string

// Storage/CAS/delete/mutate statuses.
const (
	StatusStored    Status = "STORED"
	StatusNotStored Status = "NOT_STORED"
	StatusExists    Status = "EXISTS"
	StatusNotFound  Status = "NOT_FOUND"
	StatusDeleted   Status = "DELETED"
	StatusTouched   Status = "TOUCHED"
	StatusOK        Status = "OK"
	StatusError     Status = "ERROR"

	// StatusValue and StatusEnd name the get-response line heads rather
	// than one-line statuses: StatusValue is the first token of each VALUE
	// line, StatusEnd the terminal END line.
	StatusValue Status = "VALUE"
	StatusEnd   Status = "END"
)

// Protocol-level error line prefixes.
const (
	prefixClientError = "CLIENT_ERROR "
	prefixServerError = "SERVER_ERROR "
	lineGenericError  = "ERROR"
	lineEnd           = "END"
	prefixStat        = "STAT "
	prefixVersion     = "VERSION "
)

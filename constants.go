package memcache

// maxExptimeRelative is the boundary the classic ASCII protocol uses to
// distinguish a relative exptime (seconds from now) from an absolute Unix
// timestamp: values at or below this many seconds are relative, anything
// larger is a timestamp. This module passes exptime through verbatim — it
// is the caller's responsibility to pick relative vs. absolute — but the
// constant is exposed so callers building exptime values don't have to
// look the threshold up in the protocol spec themselves.
const maxExptimeRelative = 60 * 60 * 24 * 30

// MaxExptimeRelative is maxExptimeRelative, exported for callers.
const MaxExptimeRelative = maxExptimeRelative

// MaxValueSize is the classic default item size ceiling most memcached
// servers enforce; this module does not reject larger payloads itself
// (the server will answer SERVER_ERROR object too large for cache), but
// callers assembling a Transcoder may want the number without digging
// through the protocol docs.
const MaxValueSize = 1024 * 1024

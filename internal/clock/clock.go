// Package clock centralises the single source of wall-clock time the
// collector uses for every persisted timestamp: Asia/Dili, UTC+9, no DST.
package clock

import "time"

// Dili is the fixed offset location used for every persisted timestamp.
// time.LoadLocation("Asia/Dili") depends on the host's tzdata being
// present; a fixed zone avoids that dependency and matches the
// no-DST, UTC+9 guarantee the spec requires.
var Dili = time.FixedZone("+09", 9*60*60)

// Now returns the current instant expressed in Dili local time.
func Now() time.Time {
	return time.Now().In(Dili)
}

// ToDili converts any time.Time to Dili local time. A naive value (one
// already carrying the Dili offset, or UTC) converts the same way as
// an aware one: Go's time.Time is always zone-aware, so this is a
// straight re-projection, not a reinterpretation.
func ToDili(t time.Time) time.Time {
	return t.In(Dili)
}

// FromUnixMillisUTC converts a vendor millisecond epoch (always UTC)
// into Dili local time.
func FromUnixMillisUTC(ms int64) time.Time {
	return time.UnixMilli(ms).In(Dili)
}

// FormatFaultTimestamp renders a Dili time as the vendor's fault-block
// format: DD:MM:YYYY HH:MM:SS.
func FormatFaultTimestamp(t time.Time) string {
	return ToDili(t).Format("02:01:2006 15:04:05")
}

// FormatISO8601 renders a Dili time as an ISO-8601/RFC3339 timestamp,
// matching the original source's datetime.isoformat() rendering of
// metadata.retrieval_timestamp.
func FormatISO8601(t time.Time) string {
	return ToDili(t).Format(time.RFC3339)
}

package common

// Sync channels. Each channel is drained independently against its own
// server endpoint. The names double as sync-signal tags.
const (
	ChannelAttendance = "sync-attendance"
	ChannelSessions   = "sync-sessions"
)

// Action type discriminators stored in pending entries.
const (
	ActionSignIn = "signin"
)

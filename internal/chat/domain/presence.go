package domain

import "time"

// PresenceState advisory state written by the owner of the entry
type PresenceState string

const (
	// PresenceOnline heartbeat lease is being renewed
	PresenceOnline PresenceState = "online"
	// PresenceOffline best effort write on leave
	PresenceOffline PresenceState = "offline"
)

// PresenceEntry heartbeat lease of one participant
type PresenceEntry struct {
	LastHeartbeat time.Time     `bson:"last_heartbeat" json:"last_heartbeat"`
	State         PresenceState `bson:"state" json:"state"`
}

// IsOnline state is not offline and the last heartbeat is within window
func IsOnline(e PresenceEntry, now time.Time, window time.Duration) bool {
	if e.State == PresenceOffline || e.LastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(e.LastHeartbeat) <= window
}

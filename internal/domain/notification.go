package domain

// Notification is one entry of the remote notification feed.
// Feeds are ordered newest-first; a higher ID is newer.
type Notification struct {
	ID      int64  `json:"id"`
	Type    string `json:"tipo"`
	Title   string `json:"titulo"`
	Message string `json:"mensaje"`
	Date    string `json:"fecha,omitempty"`
}

// UnreadCount returns how many entries of a newest-first feed are newer than
// lastSeen. A nil marker, or a marker no longer present in the feed, makes
// every entry unread.
func UnreadCount(feed []Notification, lastSeen *int64) int {
	if lastSeen == nil {
		return len(feed)
	}
	for i, n := range feed {
		if n.ID == *lastSeen {
			return i
		}
	}
	return len(feed)
}

// PushRegistration is the payload sent to the push-token registration endpoint.
type PushRegistration struct {
	Token  string `json:"token"`
	Device string `json:"device"`
	User   string `json:"user"`
}

package event

type Type string

const (
	TypeSessionRestored Type = "session.restored"
	TypeLoggedIn        Type = "session.login"
	TypeLoggedOut       Type = "session.logout"
	TypeUserRefreshed   Type = "session.user_refreshed"
	TypeSessionExpired  Type = "session.expired"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
	Username  string      `json:"username,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

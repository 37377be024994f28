package model

import "time"

type (
	// Session binds a short random id to the account that proved key ownership.
	Session struct {
		SessionID string `json:"sessionId" bson:"sessionId"`
		Account   string `json:"account" bson:"account"`
		Expires   int64  `json:"expires" bson:"expires"` // unix seconds
	}

	// SessionTicket is what new-session returns to the client.
	SessionTicket struct {
		SessionID string `json:"sessionId"`
		Expires   int64  `json:"expires"`
	}
)

// SessionIDLength is the fixed length of a session id.
const SessionIDLength = 10

func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.Expires
}

func (s *Session) Ticket() SessionTicket {
	return SessionTicket{SessionID: s.SessionID, Expires: s.Expires}
}

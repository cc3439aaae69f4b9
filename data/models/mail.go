package models

import "database/sql"

type Subscriber struct {
	ID    int64          `json:"id" db:"id" readOnly:"true"`
	Email sql.NullString `json:"email" db:"email"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}

func (s Subscriber) GetID() int64 {
	return s.ID
}

func (s Subscriber) EmptySlice() interface{} {
	return &[]Subscriber{}
}

func (s Subscriber) String() string {
	return s.Email.String
}

type Letter struct {
	ID           int64  `json:"id" db:"id" readOnly:"true"`
	SubscriberID int64  `validate:"required" json:"to" db:"subscriber_id"`
	Subject      string `validate:"max=200" json:"subject" db:"subject"`
	Text         string `json:"text" db:"text"`
	IsSent       bool   `json:"is_sent" db:"is_sent"`
}

func (Letter) TableName() string {
	return "letters"
}

func (l Letter) GetID() int64 {
	return l.ID
}

func (l Letter) EmptySlice() interface{} {
	return &[]Letter{}
}

// SubscriberSummary is the per-subscriber letter tally shown by the mailing
// list screen.
type SubscriberSummary struct {
	Email           string `json:"email"`
	LetterCount     int    `json:"letter_count"`
	SentLetterCount int    `json:"sent_letter_count"`
}

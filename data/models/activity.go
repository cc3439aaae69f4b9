package models

import "time"

// Enroll is a reservation of a place at an event.
type Enroll struct {
	ID        int64     `json:"id" db:"id" readOnly:"true"`
	UserID    int64     `validate:"required" json:"user_id" db:"user_id"`
	EventID   int64     `validate:"required" json:"event_id" db:"event_id"`
	CreatedAt time.Time `json:"created" db:"created_at" readOnly:"true"`
}

func (Enroll) TableName() string {
	return "enrolls"
}

func (e Enroll) GetID() int64 {
	return e.ID
}

func (e Enroll) EmptySlice() interface{} {
	return &[]Enroll{}
}

type Review struct {
	ID        int64     `json:"id" db:"id" readOnly:"true"`
	UserID    int64     `validate:"required" json:"user_id" db:"user_id"`
	EventID   int64     `validate:"required" json:"event_id" db:"event_id"`
	Rate      int       `validate:"min=1,max=5" json:"rate" db:"rate"`
	Text      string    `validate:"required" json:"text" db:"text"`
	CreatedAt time.Time `json:"created" db:"created_at"`
	UpdatedAt time.Time `json:"updated" db:"updated_at"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r Review) GetID() int64 {
	return r.ID
}

func (r Review) EmptySlice() interface{} {
	return &[]Review{}
}

type Favorite struct {
	ID        int64     `json:"id" db:"id" readOnly:"true"`
	UserID    int64     `validate:"required" json:"user_id" db:"user_id"`
	EventID   int64     `validate:"required" json:"event_id" db:"event_id"`
	CreatedAt time.Time `json:"created" db:"created_at" readOnly:"true"`
}

func (Favorite) TableName() string {
	return "favorites"
}

func (f Favorite) GetID() int64 {
	return f.ID
}

func (f Favorite) EmptySlice() interface{} {
	return &[]Favorite{}
}

// EnrollSummary is an enrollment joined with the enrolled user's name and the
// rate that user gave the event, if any.
type EnrollSummary struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	EventTitle string    `json:"event_title"`
	UserName   string    `json:"user_name"`
	Rate       *float64  `json:"rate"`
	CreatedAt  time.Time `json:"created"`
}

// ReviewSummary is a review joined with its author's name and event title.
type ReviewSummary struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	EventTitle string    `json:"event_title"`
	UserName   string    `json:"user_name"`
	Rate       int       `json:"rate"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created"`
	UpdatedAt  time.Time `json:"updated"`
}

// FavoriteSummary is a favorite joined with the event title.
type FavoriteSummary struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	EventTitle string    `json:"event_title"`
	CreatedAt  time.Time `json:"created"`
}

package models

import "time"

type Category struct {
	ID    int64  `json:"id" db:"id" readOnly:"true"`
	Title string `validate:"max=90" json:"title" db:"title"`
}

func (Category) TableName() string {
	return "categories"
}

func (c Category) GetID() int64 {
	return c.ID
}

func (c Category) EmptySlice() interface{} {
	return &[]Category{}
}

type Feature struct {
	ID    int64  `json:"id" db:"id" readOnly:"true"`
	Title string `validate:"max=90" json:"title" db:"title"`
}

func (Feature) TableName() string {
	return "features"
}

func (f Feature) GetID() int64 {
	return f.ID
}

func (f Feature) EmptySlice() interface{} {
	return &[]Feature{}
}

type Event struct {
	ID                 int64     `json:"id" db:"id" readOnly:"true"`
	Title              string    `validate:"required,max=200" json:"title" db:"title"`
	Description        string    `json:"description" db:"description"`
	DateStart          time.Time `validate:"required" json:"date_start" db:"date_start"`
	ParticipantsNumber int       `validate:"min=1,max=32767" json:"participants_number" db:"participants_number"`
	IsPrivate          bool      `json:"is_private" db:"is_private"`
	CategoryID         *int64    `json:"category_id" db:"category_id"`
	CreatedAt          time.Time `json:"created_at" db:"created_at" readOnly:"true"`
}

func (Event) TableName() string {
	return "events"
}

func (e Event) GetID() int64 {
	return e.ID
}

func (e Event) EmptySlice() interface{} {
	return &[]Event{}
}

// EventListing is an event annotated with its enrollment count and the
// related objects a listing needs.
type EventListing struct {
	Event
	CategoryTitle string    `json:"category_title"`
	EnrollCount   int       `json:"enroll_count"`
	PlacesLeft    int       `json:"places_left"`
	Ratio         float64   `json:"ratio"`
	Fullness      Fullness  `json:"fullness"`
	Features      []Feature `json:"features"`
}

// Annotate fills the values derived from capacity and enrollment count.
func (l *EventListing) Annotate() {
	l.PlacesLeft = l.ParticipantsNumber - l.EnrollCount
	if l.PlacesLeft < 0 {
		l.PlacesLeft = 0
	}
	if l.ParticipantsNumber > 0 {
		l.Ratio = float64(l.EnrollCount) / float64(l.ParticipantsNumber)
	}
	l.Fullness = Classify(l.ParticipantsNumber, l.EnrollCount)
	if l.Features == nil {
		l.Features = []Feature{}
	}
}

// EventDetail is the full view of a single event.
type EventDetail struct {
	EventListing
	Enrolls []EnrollSummary `json:"enrolls"`
	Reviews []ReviewSummary `json:"reviews"`
}

// CategorySummary is a category with the number of events in it.
type CategorySummary struct {
	Category
	EventCount int `json:"event_count"`
}

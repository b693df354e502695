package trip

import "time"

// Trip is a published travel plan. Dates and budget stay free-text:
// the directory stores whatever the owner typed.
type Trip struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Budget      string    `json:"budget"`
	Interests   string    `json:"interests"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filters narrows a listing. Destination also constrains the store query;
// interests and month are matched only against the fetched page.
type Filters struct {
	Destination string
	Interests   string
	Month       string
}

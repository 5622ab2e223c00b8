package breach

import (
	"time"
)

// Record is one breach event attributed to one email address. The pair
// (Email, Name) is the identity key within the store; ID is a locally
// generated surrogate.
type Record struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"Name"`
	Title        string    `json:"Title"`
	Domain       string    `json:"Domain"`
	BreachDate   string    `json:"BreachDate"`
	AddedDate    time.Time `json:"AddedDate"`
	ModifiedDate time.Time `json:"ModifiedDate"`
	PwnCount     int64     `json:"PwnCount"`
	Description  string    `json:"Description"`
	LogoPath     string    `json:"LogoPath"`
	DataClasses  []string  `json:"DataClasses"`
	IsVerified   bool      `json:"IsVerified"`
	IsFabricated bool      `json:"IsFabricated"`
	IsSensitive  bool      `json:"IsSensitive"`
	IsRetired    bool      `json:"IsRetired"`
	IsSpamList   bool      `json:"IsSpamList"`
	IsMalware    bool      `json:"IsMalware"`
}

// Result is the outcome of processing one user's fetched breaches.
// New holds every record that was absent from the store before this run;
// Notify is the subset of New at or after the cutoff date. The per-user
// summary always reports len(New), while only Notify reaches the user.
type Result struct {
	New    []Record
	Notify []Record
}

package user

// User is a directory entry. Read-only input, sourced from the directory
// backend.
type User struct {
	ID          string `json:"id"`
	Mail        string `json:"mail"`
	DisplayName string `json:"displayName"`
	GivenName   string `json:"givenName"`
}

// FirstName returns the name used to address the user in a notification,
// falling back to the display name when the directory has no given name.
func (u User) FirstName() string {
	if u.GivenName != "" {
		return u.GivenName
	}
	return u.DisplayName
}

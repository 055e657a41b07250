package domain

// UserRecord is the user document. Journal entries are stored separately and
// are not part of the record.
type UserRecord struct {
	UserID    UserID `json:"user_id" yaml:"userId"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	FirstName string `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	DOB       string `json:"dob,omitempty" yaml:"dob,omitempty"` // YYYY-MM-DD

	Persona *Persona `json:"user_persona,omitempty" yaml:"user_persona,omitempty"`
}

// Validate checks the record before it is written.
func (u UserRecord) Validate() error {
	if u.DOB != "" {
		if _, err := ParseDate(u.DOB); err != nil {
			return NewValidationError("dob", "must be formatted as YYYY-MM-DD")
		}
	}
	return nil
}

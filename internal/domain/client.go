package domain

// Client is a customer record keyed by a caller supplied id.
// PasswordHash holds the bcrypt hash of the submitted password and is never serialized.
type Client struct {
	ID           int64  `json:"id" form:"id"`
	Documento    string `json:"documento" form:"documento"`
	FirstName    string `json:"first_name" form:"first_name"`
	LastName     string `json:"last_name" form:"last_name"`
	Email        string `json:"email" form:"email"`
	PasswordHash string `json:"-"`
}

func (c Client) Key() int64 {
	return c.ID
}

// FullName joins first and last name with a single space
func (c Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

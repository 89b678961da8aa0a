package contact

// Contact a single entry of the address book, Name is the unique key
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// New contact constructor
func New(name, email, phone string) Contact {
	return Contact{
		Name:  name,
		Email: email,
		Phone: phone,
	}
}

package domain

// Registration is the validated input for account creation.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type Credentials struct {
	Email    string
	Password string
}

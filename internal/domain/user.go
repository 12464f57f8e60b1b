package domain

type User struct {
	ID        string `json:"_id" bson:"_id,omitempty"`
	Email     string `json:"email" bson:"email"`
	Password  string `json:"-" bson:"password"` // bcrypt hash, never serialized
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
}

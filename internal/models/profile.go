package models

// Profile is the user record kept alongside the auth account.
type Profile struct {
	UserID   string `json:"userId"`
	FullName string `json:"fullName" validate:"omitempty,max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
	Address  string `json:"address" validate:"omitempty,max=255"`
	ImageURL string `json:"imageUrl"`
}

// ToMap returns the fields written by a partial update. Empty fields are left
// out so they keep their stored value.
func (p Profile) ToMap() map[string]any {
	fields := map[string]any{"userId": p.UserID}
	for key, value := range map[string]string{
		"fullName": p.FullName,
		"email":    p.Email,
		"phone":    p.Phone,
		"address":  p.Address,
		"imageUrl": p.ImageURL,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

package models

// Customer is a client of the repair shop. Services embed a cached
// copy of the name for display.
type Customer struct {
	BaseModel
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

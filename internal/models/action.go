package models

// Action is a billable repair operation with a default price.
type Action struct {
	BaseModel
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

package domain

// Product represents a catalog item (producto)
type Product struct {
	ID          int64  `json:"id" form:"id"`
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

func (p Product) Key() int64 {
	return p.ID
}

package request

// ClientRequest is the body of create and update client requests. On update
// omitted fields keep their stored value.
type ClientRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=255"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	Company   *string `json:"company" binding:"omitempty,max=255"`
	Address   *string `json:"address"`
	TaxNumber *string `json:"tax_number" binding:"omitempty,max=50"`
}

// ClientFilterRequest represents client list parameters
type ClientFilterRequest struct {
	Search  string `form:"search"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Cursor  string `form:"cursor"`
	Limit   int    `form:"limit"`
}

package domain

// Invoice (factura). ClientID is not checked against the client registry.
type Invoice struct {
	ID          int64  `json:"id" form:"id"`
	ClientID    int64  `json:"client_id" form:"client_id"`
	CompanyName string `json:"company_name" form:"company_name"`
	Nit         string `json:"nit" form:"nit"`
	Code        string `json:"code" form:"code"`
}

func (i Invoice) Key() int64 {
	return i.ID
}

package domain

// Registry names, used as event topics suffixes, metric labels and snapshot buckets.
const (
	TableUsers    = "users"
	TableClients  = "clientes"
	TableInvoices = "facturas"
	TableProducts = "productos"
)

var Tables = []string{
	TableUsers,
	TableClients,
	TableInvoices,
	TableProducts,
}

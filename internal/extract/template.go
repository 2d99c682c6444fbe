package extract

// DefaultTemplate is the system extraction schema: the receipt columns the
// default shared sink was provisioned with. Users on template-capable tiers
// may override the field set and order.
func DefaultTemplate() []string {
	return []string{
		"waktu",
		"penjual",
		"barang",
		"harga",
		"jumlah",
		"service",
		"pajak",
		"ppn",
		"subtotal",
	}
}

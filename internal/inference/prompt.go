package inference

import "strings"

// DefaultPrompt asks the model for a JSON array of receipt line items in the
// default template's fields.
const DefaultPrompt = `Ekstrak semua item dari struk/invoice berikut.
Untuk setiap item berikan field: waktu, penjual, barang, harga, jumlah, service, pajak, ppn, subtotal.
Berikan respons dalam format JSON array.`

// BuildPrompt renders the extraction prompt for a template, preferring the
// user's custom prompt when one is set.
func BuildPrompt(custom *string, template []string) string {
	if custom != nil && strings.TrimSpace(*custom) != "" {
		return *custom
	}
	if len(template) == 0 {
		return DefaultPrompt
	}
	return "Ekstrak semua item dari struk/invoice berikut.\n" +
		"Untuk setiap item berikan field: " + strings.Join(template, ", ") + ".\n" +
		"Berikan respons dalam format JSON array."
}

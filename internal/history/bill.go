package history

import "time"

// Bill is one uploaded and confirmed bill. Immutable once created; the
// owning user may delete it.
type Bill struct {
	ID          string     `json:"id"`
	ShopID      string     `json:"shop_id"`
	ShopName    string     `json:"shop_name"`
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	UploadedAt  time.Time  `json:"uploaded_at"`
}

// LineItem is a single purchased item on a bill.
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// ItemTotal sums price times quantity over all items. At creation time this
// should equal TotalAmount; it is not recomputed afterwards.
func (b Bill) ItemTotal() float64 {
	var total float64
	for _, item := range b.Items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		total += item.Price * float64(qty)
	}
	return total
}

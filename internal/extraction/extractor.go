package extraction

// ExtractedItem is one line item read off a bill.
type ExtractedItem struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
}

// BillData contains the information extracted from an uploaded bill. It is
// a draft: the user reviews it and selects a shop before anything persists.
type BillData struct {
	ShopName    string          `json:"shop_name"`
	Items       []ExtractedItem `json:"items"`
	TotalAmount float64         `json:"total_amount"`
}

// Extractor defines the interface for bill extraction backends.
type Extractor interface {
	// ExtractBill analyzes a bill image/PDF and extracts the shop name,
	// line items and total.
	ExtractBill(imageData []byte, contentType string) (*BillData, error)
	// Close closes the extractor and releases resources.
	Close() error
}

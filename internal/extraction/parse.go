package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseBillJSON parses the JSON response from an extraction model.
func parseBillJSON(text string) (*BillData, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data BillData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.ShopName = strings.TrimSpace(data.ShopName)
	if data.ShopName == "" {
		data.ShopName = "Unknown Shop"
	}

	for i := range data.Items {
		data.Items[i].ProductName = strings.TrimSpace(data.Items[i].ProductName)
		data.Items[i].Unit = strings.TrimSpace(data.Items[i].Unit)
		if data.Items[i].Quantity < 1 {
			data.Items[i].Quantity = 1
		}
	}

	// Models sometimes omit the grand total; fall back to summing the items
	if data.TotalAmount == 0 {
		for _, item := range data.Items {
			data.TotalAmount += item.Price * float64(item.Quantity)
		}
	}

	return &data, nil
}

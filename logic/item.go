package logic

import "fmt"

// Rating is the aggregate review score shown on an item card.
type Rating struct {
	Stars float64 `json:"stars"`
	Count int     `json:"count"`
}

// Item is a catalog entry as served by the backend.
type Item struct {
	ID                 string `json:"id"`
	Name               string `json:"item_name"`
	Company            string `json:"company,omitempty"`
	Image              string `json:"image,omitempty"`
	CurrentPrice       int    `json:"current_price"`
	OriginalPrice      int    `json:"original_price"`
	DiscountPercentage int    `json:"discount_percentage,omitempty"`
	ReturnPeriod       int    `json:"return_period,omitempty"`
	DeliveryDate       string `json:"delivery_date,omitempty"`
	Rating             Rating `json:"rating"`
}

// Validate checks the fields the catalog relies on. Containers never call it;
// it is for whoever produces items from outside input.
func (i Item) Validate() error {
	if i.ID == "" {
		return NewInvalidArgument(ErrMsgItemIDRequired)
	}
	if i.CurrentPrice < 0 || i.OriginalPrice < 0 {
		return NewInvalidArgumentf("item %s: %s", i.ID, ErrMsgNegativePrice)
	}
	if i.CurrentPrice > i.OriginalPrice {
		return NewInvalidArgumentf("item %s: %s", i.ID, ErrMsgPriceAboveOriginal)
	}
	return nil
}

// Discount is the saving against the original price.
func (i Item) Discount() int {
	return i.OriginalPrice - i.CurrentPrice
}

func (i Item) String() string {
	return fmt.Sprintf("%s (%s) %d/%d", i.ID, i.Name, i.CurrentPrice, i.OriginalPrice)
}

package orders

// OrderDraft is the typed order assembled from payment intent metadata. The
// wire format (flat metadata strings with embedded JSON) is a serialization
// boundary; everything downstream of the webhook parser works with this.
type OrderDraft struct {
	PaymentIntentID string
	Customer        Customer
	ShippingAddress ShippingAddress
	Items           []Item
	ShippingMethod  ShippingMethod
	TaxCents        int64
	RepCode         string
	Environment     string
}

// Customer identifies the buyer.
type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// ShippingAddress is the delivery destination.
type ShippingAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country,omitempty"`
}

// Item is one purchased line.
type Item struct {
	VariantID  int64  `json:"variant_id"`
	Title      string `json:"title,omitempty"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price"`
}

// ShippingMethod is the selected shipping option and its charged price.
type ShippingMethod struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price"`
}

// Complete reports whether the draft carries the fields required to place
// an order. Optional fields (rep code, phone) degrade gracefully.
func (d OrderDraft) Complete() bool {
	return d.Customer.Email != "" && len(d.Items) > 0
}

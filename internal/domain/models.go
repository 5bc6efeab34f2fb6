package domain

import "time"

// Lot is one purchased batch of a single item type. Sales are owned by the
// lot and never exist on their own.
type Lot struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	UnitCost        int64     `json:"unitCost"`
	TotalCost       int64     `json:"totalCost"`
	Quantity        int       `json:"quantity"`
	Remaining       int       `json:"remaining"`
	DateAdded       Timestamp `json:"dateAdded"`
	PurchaseDate    Timestamp `json:"purchaseDate"`
	ImageData       *string   `json:"imageData"`
	Sales           []Sale    `json:"sales"`
	ReturnDismissed bool      `json:"returnDismissed"`
}

// Sale is one transaction against a lot. Money fields are a snapshot taken
// when the sale was recorded or last revised.
type Sale struct {
	ID           string    `json:"id"`
	UnitsSold    int       `json:"unitsSold"`
	PricePerUnit int64     `json:"pricePerUnit"`
	TotalPrice   int64     `json:"totalPrice"`
	Platform     string    `json:"platform"`
	Fees         int64     `json:"fees"`
	ShippingCost int64     `json:"shippingCost"`
	CostBasis    int64     `json:"costBasis"`
	Profit       int64     `json:"profit"`
	DateSold     Timestamp `json:"dateSold"`
	Returned     bool      `json:"returned"`
}

// SaleRecord pairs a sale with a snapshot of its lot. Sale may be nil in
// hand-built inputs; consumers skip such records.
type SaleRecord struct {
	Lot  *Lot  `json:"lot"`
	Sale *Sale `json:"sale"`
}

// LotInput is the add-lot form. Cost is the total paid for the batch, in dollars.
type LotInput struct {
	Name         string     `json:"name"`
	Cost         float64    `json:"cost"`
	Quantity     int        `json:"quantity"`
	PurchaseDate *time.Time `json:"purchaseDate,omitempty"`
	ImageData    *string    `json:"imageData,omitempty"`
}

// LotPatch lists editable lot fields; nil means unchanged. Amounts are cents.
type LotPatch struct {
	Name            *string    `json:"name,omitempty"`
	TotalCost       *int64     `json:"totalCost,omitempty"`
	UnitCost        *int64     `json:"unitCost,omitempty"`
	Quantity        *int       `json:"quantity,omitempty"`
	PurchaseDate    *time.Time `json:"purchaseDate,omitempty"`
	ImageData       *string    `json:"imageData,omitempty"`
	ClearImage      bool       `json:"clearImage,omitempty"`
	ReturnDismissed *bool      `json:"returnDismissed,omitempty"`
}

// SaleInput is the record-sale form. Prices are dollars per unit.
type SaleInput struct {
	PricePerUnit float64    `json:"pricePerUnit"`
	UnitsSold    int        `json:"unitsSold"`
	Platform     string     `json:"platform"`
	ShippingCost float64    `json:"shippingCost"`
	DateSold     *time.Time `json:"dateSold,omitempty"`
}

// SalePatch is a raw field merge into an embedded sale. It does not derive
// fees or profit; callers changing price, units or platform pass the
// recomputed values themselves.
type SalePatch struct {
	UnitsSold    *int       `json:"unitsSold,omitempty"`
	PricePerUnit *int64     `json:"pricePerUnit,omitempty"`
	TotalPrice   *int64     `json:"totalPrice,omitempty"`
	Platform     *string    `json:"platform,omitempty"`
	Fees         *int64     `json:"fees,omitempty"`
	ShippingCost *int64     `json:"shippingCost,omitempty"`
	CostBasis    *int64     `json:"costBasis,omitempty"`
	Profit       *int64     `json:"profit,omitempty"`
	DateSold     *time.Time `json:"dateSold,omitempty"`
}

// User is the signed-in cloud identity.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Account is a stored credential in the cloud account table.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a Account) User() User {
	return User{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	User      User   `json:"user"`
	ExpiresAt string `json:"expiresAt"`
}

// OrderData is a best-effort read of an order screenshot.
type OrderData struct {
	Name     string  `json:"name"`
	Cost     float64 `json:"cost"`
	Quantity int     `json:"quantity"`
}

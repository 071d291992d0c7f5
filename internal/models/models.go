package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProductType separates shipped goods from link-delivered goods.
type ProductType string

const (
	ProductTypePhysical ProductType = "PHYSICAL"
	ProductTypeDigital  ProductType = "DIGITAL"
)

// Category is one of the fixed catalog categories.
type Category string

const (
	CategoryRudraksha       Category = "RUDRAKSHA"
	CategoryGemstones       Category = "GEMSTONES"
	CategoryBracelets       Category = "BRACELETS"
	CategoryYantra          Category = "YANTRA"
	CategoryPoojaEssentials Category = "POOJA_ESSENTIALS"
	CategoryEbooks          Category = "EBOOKS"
)

// Categories lists every valid catalog category.
var Categories = []Category{
	CategoryRudraksha,
	CategoryGemstones,
	CategoryBracelets,
	CategoryYantra,
	CategoryPoojaEssentials,
	CategoryEbooks,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID                 string          `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Description        string          `db:"description" json:"description"`
	MRP                decimal.Decimal `db:"mrp" json:"mrp"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	Category           Category        `db:"category" json:"category"`
	ProductType        ProductType     `db:"product_type" json:"product_type"`
	Colors             pq.StringArray  `db:"colors" json:"colors"`
	Sizes              pq.StringArray  `db:"sizes" json:"sizes,omitempty"`
	ImageURL           string          `db:"image_url" json:"image_url"`
	AltImageURL        string          `db:"alt_image_url" json:"alt_image_url"`
	ReviewVideoURL     string          `db:"review_video_url" json:"review_video_url,omitempty"`
	DeliveryLink       string          `db:"delivery_link" json:"delivery_link,omitempty"`
	Visible            bool            `db:"visible" json:"visible"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Category      Category
	IncludeHidden bool
}

// IsDigital reports whether the product is delivered by link.
func (p *Product) IsDigital() bool {
	return p.ProductType == ProductTypeDigital
}

// UnitPrice is the discounted price of a single unit, unrounded.
func (p *Product) UnitPrice() decimal.Decimal {
	return p.MRP.Sub(p.MRP.Mul(p.DiscountPercentage).Div(hundred))
}

// Redacted hides the delivery link so it can be shown before payment.
func (p Product) Redacted() Product {
	p.DeliveryLink = ""
	return p
}

// Validate checks catalog invariants and trims text fields in place.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.DeliveryLink = strings.TrimSpace(p.DeliveryLink)

	if err := required("name", p.Name); err != nil {
		return err
	}
	if p.MRP.IsNegative() {
		return NewValidationError("mrp", "must not be negative")
	}
	if p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred) {
		return NewValidationError("discount_percentage", "must be between 0 and 100")
	}
	if !p.Category.Valid() {
		return NewValidationError("category", "unknown category")
	}

	switch p.ProductType {
	case ProductTypeDigital:
		if p.DeliveryLink == "" {
			return NewValidationError("delivery_link", "is required for digital products")
		}
		if len(p.Colors) > 0 || len(p.Sizes) > 0 {
			return NewValidationError("colors", "digital products cannot have colors or sizes")
		}
	case ProductTypePhysical:
	default:
		return NewValidationError("product_type", "must be PHYSICAL or DIGITAL")
	}

	if p.Colors == nil {
		p.Colors = pq.StringArray{}
	}
	if p.Sizes == nil {
		p.Sizes = pq.StringArray{}
	}
	return nil
}

// CartItem is a product snapshot with the customer's selections.
type CartItem struct {
	Product       Product `json:"product"`
	Quantity      int     `json:"quantity"`
	SelectedColor string  `json:"selected_color,omitempty"`
	SelectedSize  string  `json:"selected_size,omitempty"`
}

// LineTotal is the discounted line total, unrounded.
func (it *CartItem) LineTotal() decimal.Decimal {
	return it.Product.UnitPrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// SameLine reports whether two items describe the same product selection.
func (it *CartItem) SameLine(other *CartItem) bool {
	return it.Product.ID == other.Product.ID &&
		it.SelectedColor == other.SelectedColor &&
		it.SelectedSize == other.SelectedSize
}

// Validate checks quantity and that color/size are chosen iff the product offers them.
func (it *CartItem) Validate() error {
	if it.Quantity < 1 {
		return NewValidationError("quantity", "must be at least 1")
	}
	if err := validateChoice("selected_color", it.SelectedColor, it.Product.Colors); err != nil {
		return err
	}
	return validateChoice("selected_size", it.SelectedSize, it.Product.Sizes)
}

func validateChoice(field, selected string, options []string) error {
	if len(options) == 0 {
		if selected != "" {
			return NewValidationError(field, "product has no such option")
		}
		return nil
	}
	if selected == "" {
		return NewValidationError(field, "is required")
	}
	for _, o := range options {
		if o == selected {
			return nil
		}
	}
	return NewValidationError(field, fmt.Sprintf("%q is not offered", selected))
}

// CartItems is stored as a JSON document alongside an order.
type CartItems []CartItem

func (items CartItems) Value() (driver.Value, error) {
	if items == nil {
		items = CartItems{}
	}
	return json.Marshal(items)
}

func (items *CartItems) Scan(src interface{}) error {
	return scanJSON(src, items)
}

// HasPhysical reports whether any item ships physically.
func (items CartItems) HasPhysical() bool {
	for i := range items {
		if !items[i].Product.IsDigital() {
			return true
		}
	}
	return false
}

// HasDigital reports whether any item is delivered by link.
func (items CartItems) HasDigital() bool {
	for i := range items {
		if items[i].Product.IsDigital() {
			return true
		}
	}
	return false
}

// Digital returns only the link-delivered items.
func (items CartItems) Digital() CartItems {
	var out CartItems
	for _, it := range items {
		if it.Product.IsDigital() {
			out = append(out, it)
		}
	}
	return out
}

// Subtotal sums the discounted line totals.
func (items CartItems) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total
}

// Redacted returns a copy without delivery links.
func (items CartItems) Redacted() CartItems {
	out := make(CartItems, len(items))
	for i, it := range items {
		it.Product = it.Product.Redacted()
		out[i] = it
	}
	return out
}

// Cart holds a customer's selections until checkout.
type Cart struct {
	ID        string    `json:"id"`
	Items     CartItems `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Add merges item into an identical line or appends it.
func (c *Cart) Add(item CartItem) {
	for i := range c.Items {
		if c.Items[i].SameLine(&item) {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].Product = item.Product
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity updates a line; zero removes it. It reports whether the line existed.
func (c *Cart) SetQuantity(productID, color, size string, quantity int) bool {
	for i := range c.Items {
		it := &c.Items[i]
		if it.Product.ID != productID || it.SelectedColor != color || it.SelectedSize != size {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			it.Quantity = quantity
		}
		return true
	}
	return false
}

// CustomerDetails collected in the first checkout phase.
type CustomerDetails struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	WhatsApp string `json:"whatsapp,omitempty"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
}

// Normalize validates the details against what the cart needs and returns a
// cleaned copy. Shipping fields are required for physical items, email and
// WhatsApp for digital ones.
func (d CustomerDetails) Normalize(needsShipping, needsDigital bool) (CustomerDetails, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)

	if err := required("name", d.Name); err != nil {
		return d, err
	}
	if err := required("phone", d.Phone); err != nil {
		return d, err
	}
	phone, err := NormalizePhone("phone", d.Phone)
	if err != nil {
		return d, err
	}
	d.Phone = phone

	if needsDigital {
		if err := required("email", d.Email); err != nil {
			return d, err
		}
		if !strings.Contains(d.Email, "@") {
			return d, NewValidationError("email", "is not a valid address")
		}
		if err := required("whatsapp", d.WhatsApp); err != nil {
			return d, err
		}
		wa, err := NormalizePhone("whatsapp", d.WhatsApp)
		if err != nil {
			return d, err
		}
		d.WhatsApp = wa
	} else if d.WhatsApp != "" {
		wa, err := NormalizePhone("whatsapp", d.WhatsApp)
		if err != nil {
			return d, err
		}
		d.WhatsApp = wa
	}

	if needsShipping {
		for _, f := range []struct{ name, value string }{
			{"address", d.Address},
			{"city", d.City},
			{"state", d.State},
			{"pincode", d.Pincode},
		} {
			if err := required(f.name, f.value); err != nil {
				return d, err
			}
		}
		pin := Digits(d.Pincode)
		if len(pin) != 6 {
			return d, NewValidationError("pincode", "must be exactly 6 digits")
		}
		d.Pincode = pin
	}
	return d, nil
}

func (d CustomerDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *CustomerDetails) Scan(src interface{}) error {
	return scanJSON(src, d)
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

/*
deal.go - Deal and DealProduct

PURPOSE:
  A Deal is the closed sale a commission is computed for. Its value is either
  supplied directly (the common case for imported deals) or derived from its
  product lines. A derived value is never allowed to go stale: every product
  mutation re-derives it in the same call.

DERIVED-VALUE INVARIANT:
  value == sum(product.price * quantity - discount) whenever the value was
  derived from products. There is no separately-callable "recalculate" step;
  AddProduct/RemoveProduct re-derive as a side effect.

ATTRIBUTES:
  Rule conditions evaluate against a flat attribute map extracted from the
  deal (see Attributes). Keys are stable strings ("value", "status", ...) so
  plans can be authored without knowing Go field names.

SEE ALSO:
  - condition.go: evaluates RuleConditions against the attribute map
  - calculation.go: the same eager-recompute contract for totals
*/
package engine

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEAL PRODUCT - One line item of a deal
// =============================================================================

type DealProduct struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	Discount  decimal.Decimal
}

// LineTotal is price * quantity - discount.
func (p DealProduct) LineTotal() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity))).Sub(p.Discount)
}

// =============================================================================
// DEAL - The sale a commission is computed for
// =============================================================================

// Deal is read-only during a calculation run. Mutate products only through
// AddProduct/RemoveProduct so a derived value can never go stale.
type Deal struct {
	ID         DealID
	Value      decimal.Decimal
	SalesRepID SalesRepID
	CloseDate  time.Time
	Products   []DealProduct
	Status     DealStatus

	// derived marks Value as computed from Products rather than supplied.
	derived bool
}

// NewDeal creates a deal with an explicitly supplied value.
func NewDeal(id DealID, rep SalesRepID, value decimal.Decimal, closeDate time.Time) *Deal {
	return &Deal{
		ID:         id,
		Value:      value,
		SalesRepID: rep,
		CloseDate:  closeDate,
		Status:     DealWon,
	}
}

// NewDealFromProducts creates a deal whose value is derived from its product
// lines. The value tracks product mutations from then on.
func NewDealFromProducts(id DealID, rep SalesRepID, closeDate time.Time, products ...DealProduct) *Deal {
	d := &Deal{
		ID:         id,
		SalesRepID: rep,
		CloseDate:  closeDate,
		Products:   products,
		Status:     DealWon,
		derived:    true,
	}
	d.Value = d.DerivedValue()
	return d
}

// DerivedValue sums the product line totals.
func (d *Deal) DerivedValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Products {
		total = total.Add(p.LineTotal())
	}
	return total
}

// AddProduct appends a product line. A derived value is re-derived in the
// same call.
func (d *Deal) AddProduct(p DealProduct) {
	d.Products = append(d.Products, p)
	if d.derived {
		d.Value = d.DerivedValue()
	}
}

// RemoveProduct drops all lines for the given product id. A derived value is
// re-derived in the same call.
func (d *Deal) RemoveProduct(productID string) {
	kept := d.Products[:0]
	for _, p := range d.Products {
		if p.ProductID != productID {
			kept = append(kept, p)
		}
	}
	d.Products = kept
	if d.derived {
		d.Value = d.DerivedValue()
	}
}

// Clone returns an independent copy. Stores hand out clones so callers can
// never mutate shared state.
func (d *Deal) Clone() *Deal {
	out := *d
	out.Products = append([]DealProduct(nil), d.Products...)
	return &out
}

// ValueDerived reports whether Value tracks the product lines.
func (d *Deal) ValueDerived() bool { return d.derived }

// dealDoc is the serialized form of a Deal. The derived flag must survive a
// store round trip or a reloaded deal would stop tracking product mutations.
type dealDoc struct {
	ID         DealID          `json:"id"`
	Value      decimal.Decimal `json:"value"`
	SalesRepID SalesRepID      `json:"sales_rep_id"`
	CloseDate  time.Time       `json:"close_date"`
	Products   []DealProduct   `json:"products,omitempty"`
	Status     DealStatus      `json:"status"`
	Derived    bool            `json:"value_derived"`
}

func (d *Deal) MarshalJSON() ([]byte, error) {
	return json.Marshal(dealDoc{
		ID:         d.ID,
		Value:      d.Value,
		SalesRepID: d.SalesRepID,
		CloseDate:  d.CloseDate,
		Products:   d.Products,
		Status:     d.Status,
		Derived:    d.derived,
	})
}

func (d *Deal) UnmarshalJSON(data []byte) error {
	var doc dealDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*d = Deal{
		ID:         doc.ID,
		Value:      doc.Value,
		SalesRepID: doc.SalesRepID,
		CloseDate:  doc.CloseDate,
		Products:   doc.Products,
		Status:     doc.Status,
		derived:    doc.Derived,
	}
	return nil
}

// =============================================================================
// ATTRIBUTES - Flat view of the deal for condition evaluation
// =============================================================================

// AttrKind is the natural type of a deal attribute, used by the condition
// evaluator to pick equality vs. ordinal vs. string semantics.
type AttrKind int

const (
	AttrString AttrKind = iota
	AttrNumber
	AttrDate
)

// Attribute is one typed deal attribute.
type Attribute struct {
	Kind   AttrKind
	Str    string
	Number decimal.Decimal
	Date   time.Time
}

func StringAttr(s string) Attribute {
	return Attribute{Kind: AttrString, Str: s}
}

func NumberAttr(n decimal.Decimal) Attribute {
	return Attribute{Kind: AttrNumber, Number: n, Str: n.String()}
}

func DateAttr(t time.Time) Attribute {
	return Attribute{Kind: AttrDate, Date: t, Str: t.Format("2006-01-02")}
}

// Attributes flattens the deal into the map rule conditions evaluate against.
// Extra caller-supplied attributes (e.g. sales rep region or quota standing)
// can be merged on top; deal keys win on collision.
func (d *Deal) Attributes(extra map[string]Attribute) map[string]Attribute {
	attrs := make(map[string]Attribute, len(extra)+8)
	for k, v := range extra {
		attrs[k] = v
	}

	attrs["id"] = StringAttr(string(d.ID))
	attrs["value"] = NumberAttr(d.Value)
	attrs["sales_rep_id"] = StringAttr(string(d.SalesRepID))
	attrs["status"] = StringAttr(string(d.Status))
	attrs["close_date"] = DateAttr(d.CloseDate)
	attrs["product_count"] = NumberAttr(decimal.NewFromInt(int64(len(d.Products))))

	if len(d.Products) > 0 {
		ids := make([]string, 0, len(d.Products))
		for _, p := range d.Products {
			ids = append(ids, p.ProductID)
		}
		attrs["products"] = StringAttr(strings.Join(ids, ","))
	}

	return attrs
}

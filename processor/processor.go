package processor

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/seaward/assetctl/jira"
)

// Attribute names the rules operate on.
const (
	AttrName         = "Name"
	AttrModel        = "Model"
	AttrSerial       = "Serial Number"
	AttrPurchaseDate = "Purchase Date"
	AttrPurchaseCost = "Purchase Cost"
	AttrBuyoutPrice  = "Buyout Price"
	AttrDeviceAge    = "Device Age"
)

// buyoutNameAgeMonths is the device age at which the buyout price joins the
// asset name.
const buyoutNameAgeMonths = 18

// Processor applies the business rules to one asset at a time. It never
// performs I/O: Changes computes what should differ and the caller decides
// what to do with it, so the same engine backs batch runs, webhooks and
// tests.
type Processor struct {
	policy      *Policy
	recalculate bool
	logger      *zap.SugaredLogger
}

// New creates a processor over the given policy. recalculate forces buyout
// prices to be recomputed even when the asset already carries one.
func New(policy *Policy, recalculate bool, logger *zap.SugaredLogger) *Processor {
	return &Processor{policy: policy, recalculate: recalculate, logger: logger}
}

// Changes computes the attribute updates the rules require for the asset as
// of the given day. Only attributes whose value should actually change are
// in the result; an empty map means the asset is already in the state the
// rules describe, so a second run over updated assets is a no-op.
//
// Assets that are not buyout-eligible (unknown device category, or missing
// purchase cost or date) produce no changes at all: the rules have nothing
// to say about them.
func (p *Processor) Changes(asset *jira.Asset, today time.Time) map[string]jira.Value {
	category, ok := p.policy.CategoryFor(asset.TypeName)
	if !ok {
		p.logger.Debugw("Asset type has no device category, skipping",
			"asset_id", asset.ID, "object_type", asset.TypeName)
		return nil
	}
	cost, haveCost := asset.Attribute(AttrPurchaseCost).AsNumber()
	purchaseDate, haveDate := asset.Attribute(AttrPurchaseDate).AsDate()
	if !haveCost || !haveDate {
		p.logger.Debugw("Asset missing purchase data, skipping",
			"asset_id", asset.ID, "have_cost", haveCost, "have_date", haveDate)
		return nil
	}

	ageMonths := monthsBetween(purchaseDate, today)
	changes := make(map[string]jira.Value)

	age := jira.NumberValue(decimal.NewFromInt(int64(ageMonths)))
	if !age.Equal(asset.Attribute(AttrDeviceAge)) {
		changes[AttrDeviceAge] = age
	}

	// An existing price stands unless recalculation is forced; it still
	// feeds the name, so reprocessing converges instead of oscillating.
	price, priced := asset.Attribute(AttrBuyoutPrice).AsNumber()
	if !priced || p.recalculate {
		computed, ok := p.buyoutPrice(cost, category, ageMonths)
		if ok {
			if !priced || !computed.Equal(price) {
				changes[AttrBuyoutPrice] = jira.NumberValue(computed)
			}
			price, priced = computed, true
		}
	}

	name := p.formatName(asset, ageMonths, price, priced)
	if !jira.TextValue(name).Equal(asset.Attribute(AttrName)) {
		changes[AttrName] = jira.TextValue(name)
	}

	if len(changes) > 0 {
		p.logger.Debugw("Computed asset changes",
			"asset_id", asset.ID,
			"category", category,
			"age_months", ageMonths,
			"attributes", len(changes))
	}
	return changes
}

// buyoutPrice computes residual% of the VAT-inclusive cost, rounded
// half-up to the cent.
func (p *Processor) buyoutPrice(cost decimal.Decimal, category string, ageMonths int) (decimal.Decimal, bool) {
	residual, ok := p.policy.ResidualPercent(category, ageMonths)
	if !ok {
		return decimal.Decimal{}, false
	}
	withVAT := cost.Mul(decimal.NewFromInt(1).Add(p.policy.VATRate))
	price := withVAT.Mul(residual).Div(decimal.NewFromInt(100))
	return price.Round(2), true
}

// formatName renders "Model - Serial", appending the buyout price once the
// device is old enough to be bought out. A missing model falls back to the
// object type name, a missing serial to "Unknown".
func (p *Processor) formatName(asset *jira.Asset, ageMonths int, price decimal.Decimal, priced bool) string {
	model := asset.Attribute(AttrModel).String()
	if model == "" {
		model = asset.TypeName
	}
	serial := asset.Attribute(AttrSerial).String()
	if serial == "" {
		serial = "Unknown"
	}

	name := model + " - " + serial
	if ageMonths >= buyoutNameAgeMonths && priced {
		name += " - Buyout Price: " + price.StringFixed(2) + "€"
	}
	return name
}

// monthsBetween counts whole calendar months from purchase to today: the
// year/month difference, minus one when the day of month has not come
// around yet. Never negative.
func monthsBetween(purchase, today time.Time) int {
	months := (today.Year()-purchase.Year())*12 + int(today.Month()) - int(purchase.Month())
	if today.Day() < purchase.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months
}

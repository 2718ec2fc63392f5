// Package catalog holds the read-only lookup tables the engine consumes:
// purchasable assets, spending and savings cards, and dreams. The engine
// treats the values as opaque economics; it only needs costs, thresholds,
// return rates, and caps. Tables are immutable after construction.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownEntry is returned when an action references a catalog id that
// does not exist. It is a validation failure: no state is touched.
var ErrUnknownEntry = errors.New("unknown catalog entry")

// Asset is a purchasable holding that pays ProfitPerReturn up to MaxReturns
// times.
type Asset struct {
	ID              string
	Name            string
	Cost            int64
	ProfitPerReturn int64
	MaxReturns      int
}

// CardType distinguishes the card tables.
type CardType string

const (
	CardTypeSpending CardType = "spending"
	CardTypeSavings  CardType = "savings"
	CardTypePlaying  CardType = "playing"
)

// Card is a drawn card definition. Spending cards carry TotalCost; savings
// cards carry Threshold; playing cards carry EffectPoints, applied the
// moment the card is drawn (positive adds points, negative adds liability).
type Card struct {
	ID           string
	Type         CardType
	Name         string
	TotalCost    int64
	Threshold    int64
	EffectPoints int64
}

// Dream is the one-time purchase that closes out a player's win conditions.
type Dream struct {
	ID   string
	Name string
	Cost int64
}

// Catalog is the full set of lookup tables for one deployment.
type Catalog struct {
	assets map[string]Asset
	cards  map[string]Card
	dreams map[string]Dream
}

// New builds a catalog from the given definitions. Duplicate ids within one
// table are an error.
func New(assets []Asset, cards []Card, dreams []Dream) (*Catalog, error) {
	c := &Catalog{
		assets: make(map[string]Asset, len(assets)),
		cards:  make(map[string]Card, len(cards)),
		dreams: make(map[string]Dream, len(dreams)),
	}
	for _, a := range assets {
		if _, dup := c.assets[a.ID]; dup {
			return nil, fmt.Errorf("duplicate asset id %q", a.ID)
		}
		c.assets[a.ID] = a
	}
	for _, card := range cards {
		if _, dup := c.cards[card.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", card.ID)
		}
		c.cards[card.ID] = card
	}
	for _, d := range dreams {
		if _, dup := c.dreams[d.ID]; dup {
			return nil, fmt.Errorf("duplicate dream id %q", d.ID)
		}
		c.dreams[d.ID] = d
	}
	return c, nil
}

// Asset looks up an asset definition by id.
func (c *Catalog) Asset(id string) (Asset, error) {
	a, ok := c.assets[id]
	if !ok {
		return Asset{}, fmt.Errorf("asset %q: %w", id, ErrUnknownEntry)
	}
	return a, nil
}

// Card looks up a card definition by id.
func (c *Catalog) Card(id string) (Card, error) {
	card, ok := c.cards[id]
	if !ok {
		return Card{}, fmt.Errorf("card %q: %w", id, ErrUnknownEntry)
	}
	return card, nil
}

// PlayingCards returns the playing-card definitions in id order, so a
// deterministic draw index maps to a stable card.
func (c *Catalog) PlayingCards() []Card {
	cards := make([]Card, 0, len(c.cards))
	for _, card := range c.cards {
		if card.Type == CardTypePlaying {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

// Assets returns all asset definitions in id order.
func (c *Catalog) Assets() []Asset {
	assets := make([]Asset, 0, len(c.assets))
	for _, a := range c.assets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets
}

// Cards returns all card definitions in id order.
func (c *Catalog) Cards() []Card {
	cards := make([]Card, 0, len(c.cards))
	for _, card := range c.cards {
		cards = append(cards, card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

// Dreams returns all dream definitions in id order.
func (c *Catalog) Dreams() []Dream {
	dreams := make([]Dream, 0, len(c.dreams))
	for _, d := range c.dreams {
		dreams = append(dreams, d)
	}
	sort.Slice(dreams, func(i, j int) bool { return dreams[i].ID < dreams[j].ID })
	return dreams
}

// Dream looks up a dream definition by id.
func (c *Catalog) Dream(id string) (Dream, error) {
	d, ok := c.dreams[id]
	if !ok {
		return Dream{}, fmt.Errorf("dream %q: %w", id, ErrUnknownEntry)
	}
	return d, nil
}

// Default returns the built-in catalog matching the shipped board content.
// Deployments normally load tables from the database instead; the built-in
// set keeps the engine runnable without one.
func Default() *Catalog {
	c, err := New(
		[]Asset{
			{ID: "a1", Name: "Campus Printing Shop", Cost: 400, ProfitPerReturn: 320, MaxReturns: 5},
			{ID: "a2", Name: "Online Tasking Platform", Cost: 300, ProfitPerReturn: 220, MaxReturns: 5},
			{ID: "a3", Name: "Monetized YouTube Channel", Cost: 250, ProfitPerReturn: 170, MaxReturns: 5},
			{ID: "a4", Name: "Peer to Peer Lending Fund", Cost: 300, ProfitPerReturn: 220, MaxReturns: 5},
			{ID: "a5", Name: "Cryptocurrency Portfolio", Cost: 350, ProfitPerReturn: 240, MaxReturns: 5},
		},
		[]Card{
			{ID: "sp1", Type: CardTypeSpending, Name: "Campus Festival", TotalCost: 180},
			{ID: "sp2", Type: CardTypeSpending, Name: "New Phone", TotalCost: 260},
			{ID: "sp3", Type: CardTypeSpending, Name: "Road Trip", TotalCost: 220},
			{ID: "sv1", Type: CardTypeSavings, Name: "Emergency Fund", Threshold: 100},
			{ID: "sv2", Type: CardTypeSavings, Name: "Fixed Deposit", Threshold: 250},
			{ID: "pl1", Type: CardTypePlaying, Name: "Windfall", EffectPoints: 50},
		},
		[]Dream{
			{ID: "d1", Name: "Own a Home", Cost: 900},
			{ID: "d2", Name: "Start a Business", Cost: 800},
			{ID: "d3", Name: "Travel the World", Cost: 1000},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

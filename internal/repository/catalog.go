package repository

import (
	"context"
	"fmt"

	"github.com/musiliandrew/pesamali-financial-journey/internal/catalog"
)

// LoadCatalog reads the economy catalog from the asset_cards, spending_cards,
// savings_cards and dreams tables. Asset ids carry an "a" prefix in play,
// card ids "sp"/"sv"/"pl", dream ids "d"; the tables store bare integer keys.
func LoadCatalog(ctx context.Context, db *DB) (*catalog.Catalog, error) {
	assets, err := loadAssets(ctx, db)
	if err != nil {
		return nil, err
	}
	cards, err := loadCards(ctx, db)
	if err != nil {
		return nil, err
	}
	dreams, err := loadDreams(ctx, db)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(assets, cards, dreams)
	if err != nil {
		return nil, fmt.Errorf("assemble catalog: %w", err)
	}
	return cat, nil
}

func loadAssets(ctx context.Context, db *DB) ([]catalog.Asset, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, cost, profit_per_return, max_returns
		FROM asset_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query asset_cards: %w", err)
	}
	defer rows.Close()

	var assets []catalog.Asset
	for rows.Next() {
		var (
			id int
			a  catalog.Asset
		)
		if err := rows.Scan(&id, &a.Name, &a.Cost, &a.ProfitPerReturn, &a.MaxReturns); err != nil {
			return nil, fmt.Errorf("scan asset_cards: %w", err)
		}
		a.ID = fmt.Sprintf("a%d", id)
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset_cards: %w", err)
	}
	return assets, nil
}

func loadCards(ctx context.Context, db *DB) ([]catalog.Card, error) {
	var cards []catalog.Card

	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, total_cost FROM spending_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query spending_cards: %w", err)
	}
	for rows.Next() {
		var (
			id int
			c  catalog.Card
		)
		if err := rows.Scan(&id, &c.Name, &c.TotalCost); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan spending_cards: %w", err)
		}
		c.ID = fmt.Sprintf("sp%d", id)
		c.Type = catalog.CardTypeSpending
		cards = append(cards, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spending_cards: %w", err)
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT id, name, threshold FROM savings_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query savings_cards: %w", err)
	}
	for rows.Next() {
		var (
			id int
			c  catalog.Card
		)
		if err := rows.Scan(&id, &c.Name, &c.Threshold); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan savings_cards: %w", err)
		}
		c.ID = fmt.Sprintf("sv%d", id)
		c.Type = catalog.CardTypeSavings
		cards = append(cards, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate savings_cards: %w", err)
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT id, title, effect_points FROM event_cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query event_cards: %w", err)
	}
	for rows.Next() {
		var (
			id int
			c  catalog.Card
		)
		if err := rows.Scan(&id, &c.Name, &c.EffectPoints); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan event_cards: %w", err)
		}
		c.ID = fmt.Sprintf("pl%d", id)
		c.Type = catalog.CardTypePlaying
		cards = append(cards, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event_cards: %w", err)
	}

	return cards, nil
}

func loadDreams(ctx context.Context, db *DB) ([]catalog.Dream, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, cost FROM dreams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query dreams: %w", err)
	}
	defer rows.Close()

	var dreams []catalog.Dream
	for rows.Next() {
		var (
			id int
			d  catalog.Dream
		)
		if err := rows.Scan(&id, &d.Name, &d.Cost); err != nil {
			return nil, fmt.Errorf("scan dreams: %w", err)
		}
		d.ID = fmt.Sprintf("d%d", id)
		dreams = append(dreams, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dreams: %w", err)
	}
	return dreams, nil
}

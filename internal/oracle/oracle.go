// Package oracle reads stablecoin quotes from the price feed target. Prices
// are informational and never gate a stage.
package oracle

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// Symbols are the quotes reported when no feed is configured.
var Symbols = []string{"USDC", "USDT", "DAI"}

// Defaults quotes every symbol at parity.
func Defaults() []models.Price {
	prices := make([]models.Price, 0, len(Symbols))
	for _, s := range Symbols {
		prices = append(prices, models.Price{Symbol: s, Price: amount.One})
	}
	return prices
}

type Client struct {
	gw     ledger.Gateway
	target string
}

// New returns a client for the feed at target. An empty target yields a
// client that always answers with Defaults.
func New(gw ledger.Gateway, target string) *Client {
	return &Client{gw: gw, target: target}
}

func (c *Client) Prices(ctx context.Context) ([]models.Price, error) {
	if c.target == "" {
		return Defaults(), nil
	}
	var res abi.PricesResult
	if err := c.gw.Call(ctx, c.target, abi.MethodPrices, nil, &res); err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	return res.Prices, nil
}

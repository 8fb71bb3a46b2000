package bybit

import (
	"context"

	"github.com/quantframe/sessions/internal/broker"
)

// GetAccountInfo reads the unified wallet balance.
func (a *Adapter) GetAccountInfo(ctx context.Context) (*broker.AccountInfo, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := a.client.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, classifyError("get_account_info", err)
	}

	var wallet struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			TotalWalletBalance    string `json:"totalWalletBalance"`
		} `json:"list"`
	}
	if err := decodeResult("get_account_info", result, &wallet); err != nil {
		return nil, err
	}
	if len(wallet.List) == 0 {
		return nil, broker.NewPermanentError("get_account_info", "no account data returned", nil)
	}

	account := wallet.List[0]
	return &broker.AccountInfo{
		Cash:        parseFloat(account.TotalWalletBalance),
		Equity:      parseFloat(account.TotalEquity),
		BuyingPower: parseFloat(account.TotalAvailableBalance),
	}, nil
}

// GetPositions reads open positions for the configured category.
func (a *Adapter) GetPositions(ctx context.Context) ([]broker.Position, error) {
	params := map[string]interface{}{
		"category":   a.category,
		"settleCoin": "USDT",
	}

	result, err := a.client.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, classifyError("get_positions", err)
	}

	var positions struct {
		List []struct {
			Symbol   string `json:"symbol"`
			Size     string `json:"size"`
			AvgPrice string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := decodeResult("get_positions", result, &positions); err != nil {
		return nil, err
	}

	out := make([]broker.Position, 0, len(positions.List))
	for _, pos := range positions.List {
		size := parseFloat(pos.Size)
		if size == 0 {
			continue
		}
		out = append(out, broker.Position{
			Symbol:   pos.Symbol,
			Quantity: size,
			AvgPrice: parseFloat(pos.AvgPrice),
		})
	}
	return out, nil
}

// GetPrices implements broker.PriceFeed with the market tickers
// endpoint, one request per symbol.
func (a *Adapter) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))

	for _, symbol := range symbols {
		params := map[string]interface{}{
			"category": a.category,
			"symbol":   symbol,
		}

		result, err := a.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return nil, classifyError("get_prices", err)
		}

		var tickers struct {
			List []struct {
				Symbol    string `json:"symbol"`
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		}
		if err := decodeResult("get_prices", result, &tickers); err != nil {
			return nil, err
		}
		if len(tickers.List) > 0 {
			out[symbol] = parseFloat(tickers.List[0].LastPrice)
		}
	}
	return out, nil
}

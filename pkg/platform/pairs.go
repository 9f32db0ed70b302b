package platform

import "strings"

var quoteAssets = []string{"USDT", "BUSD", "USDC", "TUSD", "USD", "BTC", "ETH", "BNB", "EUR"}

var stablecoins = map[string]bool{
	"USD": true, "USDT": true, "USDC": true, "BUSD": true, "TUSD": true, "DAI": true,
}

// IsStable reports whether asset trades at parity with the US dollar.
func IsStable(asset string) bool {
	return stablecoins[strings.ToUpper(asset)]
}

// SplitAssetQuote splits a concatenated symbol such as BTCUSDT. A slash
// separated symbol is split on the slash.
func SplitAssetQuote(pair string) (asset, quote string) {
	pair = strings.ToUpper(pair)
	if base, q, found := strings.Cut(pair, "/"); found {
		return base, q
	}

	for _, quote = range quoteAssets {
		if len(pair) > len(quote) && strings.HasSuffix(pair, quote) {
			return pair[:len(pair)-len(quote)], quote
		}
	}

	if len(pair) > 3 {
		return pair[:len(pair)-3], pair[len(pair)-3:]
	}
	return pair, ""
}

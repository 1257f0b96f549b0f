package polygon

// aggsResponse is the body of the /v2/aggs endpoints.
type aggsResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Close     float64 `json:"c"`
		Timestamp int64   `json:"t"`
	} `json:"results"`
}

// tickerResponse is the body of /v3/reference/tickers/{ticker}.
type tickerResponse struct {
	Status  string `json:"status"`
	Results struct {
		Ticker   string `json:"ticker"`
		Name     string `json:"name"`
		SICCode  string `json:"sic_code"`
		Branding struct {
			LogoURL string `json:"logo_url"`
			IconURL string `json:"icon_url"`
		} `json:"branding"`
		MarketCap                 float64 `json:"market_cap"`
		WeightedSharesOutstanding float64 `json:"weighted_shares_outstanding"`
	} `json:"results"`
}

// tickerSearchResponse is the body of /v3/reference/tickers with a search term.
type tickerSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker          string `json:"ticker"`
		Name            string `json:"name"`
		PrimaryExchange string `json:"primary_exchange"`
	} `json:"results"`
}

// dividendsResponse is one page of /v3/reference/dividends.
type dividendsResponse struct {
	Status  string `json:"status"`
	NextURL string `json:"next_url"`
	Results []struct {
		CashAmount      float64 `json:"cash_amount"`
		ExDividendDate  string  `json:"ex_dividend_date"`
		PayDate         string  `json:"pay_date"`
		DeclarationDate string  `json:"declaration_date"`
		Frequency       int     `json:"frequency"`
	} `json:"results"`
}

// splitsResponse is one page of /v3/reference/splits.
type splitsResponse struct {
	Status  string `json:"status"`
	NextURL string `json:"next_url"`
	Results []struct {
		ExecutionDate string  `json:"execution_date"`
		SplitFrom     float64 `json:"split_from"`
		SplitTo       float64 `json:"split_to"`
	} `json:"results"`
}

package models

// -----------------------------------------------------------------------------
// Catalogue Models (assets, tournaments, promotions)
// -----------------------------------------------------------------------------

// MAsset is one tradable instrument in the OTC catalogue. Price is the
// display/initial price used to seed the deterministic series.
type MAsset struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Change     string  `json:"change"`
	ChangeType string  `json:"changeType"`
	Payout     int     `json:"payout"`
	Category   string  `json:"category"`
	IsOTC      bool    `json:"isOTC"`
	MarketOpen bool    `json:"marketOpen"`
}

type MTournament struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Prize        string `json:"prize"`
	Participants int    `json:"participants"`
	EndDate      string `json:"end_date"`
}

type MPromotion struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

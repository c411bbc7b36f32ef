// Package catalog holds the static OTC asset catalogue plus the read-only
// tournaments and promotions lists served by the API.
package catalog

import (
	"time"

	"otc-broker/src/models"
	"otc-broker/src/utils"
)

// -----------------------------------------------------------------------------
// Assets
// -----------------------------------------------------------------------------

var otcAssets = []models.MAsset{
	{ID: "OTC-AAPL", Name: "OTC: AAPL", Price: 189.42, Change: "+0.35%", ChangeType: "positive", Payout: 81},
	{ID: "OTC-TSLA", Name: "OTC: TSLA", Price: 242.74, Change: "-0.80%", ChangeType: "negative", Payout: 88},
	{ID: "OTC-MSFT", Name: "OTC: MSFT", Price: 312.18, Change: "+0.22%", ChangeType: "positive", Payout: 87},
	{ID: "OTC-GOOG", Name: "OTC: GOOGL", Price: 132.11, Change: "+0.48%", ChangeType: "positive", Payout: 86},
	{ID: "OTC-NFLX", Name: "OTC: NFLX", Price: 406.92, Change: "-1.12%", ChangeType: "negative", Payout: 85},
	{ID: "OTC-AMZN", Name: "OTC: AMZN", Price: 128.14, Change: "+0.62%", ChangeType: "positive", Payout: 87},
	{ID: "OTC-BABA", Name: "OTC: BABA", Price: 84.52, Change: "+0.15%", ChangeType: "positive", Payout: 84},
	{ID: "OTC-NVDA", Name: "OTC: NVDA", Price: 442.37, Change: "+1.20%", ChangeType: "positive", Payout: 89},
	{ID: "OTC-INTC", Name: "OTC: INTC", Price: 46.08, Change: "-0.40%", ChangeType: "negative", Payout: 83},
}

var assetIndex = buildIndex()

func buildIndex() map[string]models.MAsset {
	idx := make(map[string]models.MAsset, len(otcAssets)*2)
	for _, a := range otcAssets {
		idx[a.ID] = a
		idx[a.Name] = a
	}
	return idx
}

// -----------------------------------------------------------------------------

// GetAssetsByCategory returns OTC assets when requested; empty for
// unsupported categories. Payloads carry whether the real underlying market
// is currently open (display only; OTC generation runs 24/7).
func GetAssetsByCategory(category string, now time.Time) []models.MAsset {
	if category != "otc" {
		return []models.MAsset{}
	}

	assets := make([]models.MAsset, 0, len(otcAssets))
	for _, a := range otcAssets {
		assets = append(assets, annotate(a, now))
	}
	return assets
}

// -----------------------------------------------------------------------------

// FindAsset looks up an asset by id or display name.
func FindAsset(assetID string, now time.Time) (models.MAsset, bool) {
	a, ok := assetIndex[assetID]
	if !ok {
		return models.MAsset{}, false
	}
	return annotate(a, now), true
}

// -----------------------------------------------------------------------------

func annotate(a models.MAsset, now time.Time) models.MAsset {
	a.Category = "otc"
	a.IsOTC = true
	a.MarketOpen = utils.GetCalendar(a.ID).IsOpenOnMinute(now)
	return a
}

// -----------------------------------------------------------------------------
// Tournaments and Promotions
// -----------------------------------------------------------------------------

var tournaments = []models.MTournament{
	{ID: "weekly-challenge", Name: "Weekly Challenge", Prize: "$5,000", Participants: 1247, EndDate: "2 days left"},
	{ID: "monthly-masters", Name: "Monthly Masters", Prize: "$25,000", Participants: 3892, EndDate: "12 days left"},
	{ID: "cypher-sprint", Name: "Cypher Sprint", Prize: "$10,000", Participants: 800, EndDate: "1 day left"},
	{ID: "neon-nights", Name: "Neon Nights", Prize: "$2,500", Participants: 3100, EndDate: "6 hours left"},
	{ID: "quantum-leap", Name: "Quantum Leap", Prize: "$50,000", Participants: 500, EndDate: "20 days left"},
}

var promotions = []models.MPromotion{
	{ID: "riskfree100", Name: "Risk Free Trade", Description: "Get your first trade covered up to $100", Code: "RISKFREE100"},
	{ID: "cashback10", Name: "10% Cashback", Description: "Get 10% cashback on all your trades this month", Code: "CASHBACK10"},
	{ID: "double1000", Name: "100% Deposit Bonus", Description: "Double your deposit up to $1,000", Code: "DOUBLE1000"},
	{ID: "crypto20", Name: "Crypto Mania", Description: "20% bonus on all crypto deposits", Code: "CRYPTO20"},
	{ID: "friend50", Name: "Refer-a-Friend", Description: "Get $50 for every friend you refer", Code: "FRIEND50"},
}

// GetTournaments returns the tournaments catalogue.
func GetTournaments() []models.MTournament { return tournaments }

// GetPromotions returns the promotions catalogue.
func GetPromotions() []models.MPromotion { return promotions }

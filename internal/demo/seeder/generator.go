package seeder

import (
	"fmt"
	"math/rand"
	"time"
)

type campaignRow struct {
	CampaignID   int64  `parquet:"campaign_id"`
	CampaignName string `parquet:"campaign_name"`
	StartDate    string `parquet:"startdate"`
	EndDate      string `parquet:"enddate"`
	GoalAmount   int64  `parquet:"goalamount"`
}

type donorRow struct {
	DonorID     int64  `parquet:"donor_id"`
	FirstName   string `parquet:"first_name"`
	LastName    string `parquet:"last_name"`
	City        string `parquet:"city"`
	State       string `parquet:"state"`
	ZipCode     int64  `parquet:"zip_code"`
	Gender      string `parquet:"gender"`
	AgeGroup    string `parquet:"age_group"`
	IncomeLevel string `parquet:"income_level"`
}

type donationRow struct {
	DonorID         int64  `parquet:"donor_id"`
	CampaignID      int64  `parquet:"campaign_id"`
	DonationAmount  int64  `parquet:"donation_amount"`
	PaymentMethod   string `parquet:"payment_method"`
	TransactionDate string `parquet:"transaction_date"`
}

// Generator produces a deterministic demo dataset for a given seed, so
// repeated runs register byte-identical tables.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

var campaignNames = []string{
	"New Year Kickstart",
	"Spring Food Drive",
	"Summer Schools Fund",
	"Autumn Shelter Appeal",
	"Winter Warmth",
}

func (g *Generator) Campaigns(count int) []campaignRow {
	if count > len(campaignNames) {
		count = len(campaignNames)
	}
	rows := make([]campaignRow, 0, count)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		begin := start.AddDate(0, 2*i, 0)
		rows = append(rows, campaignRow{
			CampaignID:   int64(i + 1),
			CampaignName: campaignNames[i],
			StartDate:    begin.Format("2006-01-02"),
			EndDate:      begin.AddDate(0, 2, 0).Format("2006-01-02"),
			GoalAmount:   int64(10000 + g.rnd.Intn(9)*5000),
		})
	}
	return rows
}

func (g *Generator) Donors(count int) []donorRow {
	rows := make([]donorRow, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, donorRow{
			DonorID:     int64(i + 1),
			FirstName:   fmt.Sprintf("First%03d", i+1),
			LastName:    fmt.Sprintf("Last%03d", i+1),
			City:        pickOne(g.rnd, []string{"Austin", "Denver", "Portland", "Madison", "Raleigh"}),
			State:       pickOne(g.rnd, []string{"TX", "CO", "OR", "WI", "NC"}),
			ZipCode:     int64(10000 + g.rnd.Intn(89999)),
			Gender:      pickOne(g.rnd, []string{"female", "male", "other"}),
			AgeGroup:    pickOne(g.rnd, []string{"18-25", "26-40", "41-60", "60+"}),
			IncomeLevel: pickOne(g.rnd, []string{"low", "middle", "high"}),
		})
	}
	return rows
}

func (g *Generator) Donations(count, donorCount, campaignCount int) []donationRow {
	rows := make([]donationRow, 0, count)
	base := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		rows = append(rows, donationRow{
			DonorID:         int64(g.rnd.Intn(donorCount) + 1),
			CampaignID:      int64(g.rnd.Intn(campaignCount) + 1),
			DonationAmount:  int64(5 + g.rnd.Intn(495)),
			PaymentMethod:   pickOne(g.rnd, []string{"card", "check", "cash", "transfer"}),
			TransactionDate: base.AddDate(0, 0, g.rnd.Intn(300)).Format("2006-01-02"),
		})
	}
	return rows
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

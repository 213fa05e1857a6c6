package domain

import (
	"fmt"
	"time"
)

// DateLayout is the day format accepted by the metrics endpoint
const DateLayout = "2006-01-02"

// MaxRangeDays bounds a metrics request, inclusive of both ends
const MaxRangeDays = 366

// Insight metric names requested from the Graph API
const (
	MetricReach             = "reach"
	MetricProfileViews      = "profile_views"
	MetricTotalInteractions = "total_interactions"
)

// DateRange is an inclusive range of UTC days
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds
func ParseDateRange(from, to string) (DateRange, error) {
	if from == "" || to == "" {
		return DateRange{}, fmt.Errorf("%w: from and to are required in YYYY-MM-DD format", ErrInvalidInput)
	}
	start, err := time.ParseInLocation(DateLayout, from, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid from date %q", ErrInvalidInput, from)
	}
	end, err := time.ParseInLocation(DateLayout, to, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid to date %q", ErrInvalidInput, to)
	}
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: from must not be after to", ErrInvalidInput)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxRangeDays {
		return DateRange{}, fmt.Errorf("%w: range covers %d days, at most %d allowed", ErrInvalidInput, days, MaxRangeDays)
	}
	return DateRange{From: start, To: end}, nil
}

// Since is the first second of the range
func (r DateRange) Since() time.Time {
	return r.From
}

// Until is the last whole second of the range
func (r DateRange) Until() time.Time {
	return r.To.Add(24*time.Hour - time.Second)
}

// Days lists every day in the range, inclusive
func (r DateRange) Days() []string {
	var days []string
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days
}

// AccountProfile is the profile snapshot used by the report
type AccountProfile struct {
	ID             string
	Username       string
	FollowersCount int64
}

// DailyValues maps YYYY-MM-DD to a metric value
type DailyValues map[string]int64

// AccountInsights holds daily values per metric
type AccountInsights struct {
	Reach             DailyValues
	ProfileViews      DailyValues
	TotalInteractions DailyValues
}

// MetricsReport is the metrics endpoint response
type MetricsReport struct {
	Filters    MetricsFilters `json:"filters"`
	KPIs       MetricsKPIs    `json:"kpis"`
	Timeseries []DailyMetrics `json:"timeseries"`
	Account    MetricsAccount `json:"account"`
}

// MetricsFilters echoes the requested range
type MetricsFilters struct {
	From        string   `json:"from" example:"2024-01-01"`
	To          string   `json:"to" example:"2024-01-31"`
	Granularity string   `json:"granularity" example:"day"`
	Providers   []string `json:"providers"`
}

// MetricsKPIs are the range aggregates
type MetricsKPIs struct {
	Followers         int64   `json:"followers"`
	Reach             int64   `json:"reach"`
	TotalInteractions int64   `json:"totalInteractions"`
	EngagementRate    float64 `json:"engagementRate"`
}

// DailyMetrics is one timeseries entry
type DailyMetrics struct {
	Date              string  `json:"date"`
	Followers         int64   `json:"followers"`
	Reach             int64   `json:"reach"`
	ProfileViews      int64   `json:"profileViews"`
	TotalInteractions int64   `json:"totalInteractions"`
	EngagementRate    float64 `json:"engagementRate"`
}

// MetricsAccount identifies the reported account
type MetricsAccount struct {
	ExternalAccountID string `json:"externalAccountId"`
	Username          string `json:"username"`
}

// EngagementRate is interactions per reach, as a percentage. Zero reach yields zero.
func EngagementRate(interactions, reach int64) float64 {
	if reach <= 0 {
		return 0
	}
	return float64(interactions) / float64(reach) * 100
}

// BuildMetricsReport assembles the daily timeseries and KPIs.
// Days without a provider value count as zero.
func BuildMetricsReport(r DateRange, account MetricsAccount, profile *AccountProfile, insights *AccountInsights) *MetricsReport {
	var followers int64
	if profile != nil {
		followers = profile.FollowersCount
		if profile.Username != "" {
			account.Username = profile.Username
		}
	}
	if insights == nil {
		insights = &AccountInsights{}
	}

	days := r.Days()
	report := &MetricsReport{
		Filters: MetricsFilters{
			From:        r.From.Format(DateLayout),
			To:          r.To.Format(DateLayout),
			Granularity: "day",
			Providers:   []string{"instagram"},
		},
		Timeseries: make([]DailyMetrics, 0, len(days)),
		Account:    account,
	}

	var rateSum float64
	for _, day := range days {
		entry := DailyMetrics{
			Date:              day,
			Followers:         followers,
			Reach:             insights.Reach[day],
			ProfileViews:      insights.ProfileViews[day],
			TotalInteractions: insights.TotalInteractions[day],
		}
		entry.EngagementRate = EngagementRate(entry.TotalInteractions, entry.Reach)

		report.KPIs.Reach += entry.Reach
		report.KPIs.TotalInteractions += entry.TotalInteractions
		rateSum += entry.EngagementRate
		report.Timeseries = append(report.Timeseries, entry)
	}

	report.KPIs.Followers = followers
	if len(days) > 0 {
		report.KPIs.EngagementRate = rateSum / float64(len(days))
	}
	return report
}

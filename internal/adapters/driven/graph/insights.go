package graph

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

type profileResponse struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FollowersCount int64  `json:"followers_count"`
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Period string `json:"period"`
		Values []struct {
			Value   json.RawMessage `json:"value"`
			EndTime string          `json:"end_time"`
		} `json:"values"`
	} `json:"data"`
}

// Profile fetches followers_count and username for an Instagram account.
func (c *Client) Profile(ctx context.Context, accountID, token string) (*domain.AccountProfile, error) {
	params := url.Values{
		"fields":       {"followers_count,username"},
		"access_token": {token},
	}

	var resp profileResponse
	if err := c.getJSON(ctx, OpProfile, "/"+url.PathEscape(accountID), params, &resp); err != nil {
		return nil, err
	}

	id := resp.ID
	if id == "" {
		id = accountID
	}
	return &domain.AccountProfile{
		ID:             id,
		Username:       resp.Username,
		FollowersCount: resp.FollowersCount,
	}, nil
}

// DailyInsights fetches day-period insights. Values are keyed by the date
// part of end_time. Non-numeric values are skipped.
func (c *Client) DailyInsights(ctx context.Context, accountID, token string, metrics []string, metricType string, since, until time.Time) (map[string]domain.DailyValues, error) {
	params := url.Values{
		"metric":       {strings.Join(metrics, ",")},
		"period":       {"day"},
		"since":        {strconv.FormatInt(since.Unix(), 10)},
		"until":        {strconv.FormatInt(until.Unix(), 10)},
		"access_token": {token},
	}
	if metricType != "" {
		params.Set("metric_type", metricType)
	}

	var resp insightsResponse
	if err := c.getJSON(ctx, OpInsights, "/"+url.PathEscape(accountID)+"/insights", params, &resp); err != nil {
		return nil, err
	}

	result := make(map[string]domain.DailyValues, len(resp.Data))
	for _, metric := range resp.Data {
		byDay := result[metric.Name]
		if byDay == nil {
			byDay = domain.DailyValues{}
			result[metric.Name] = byDay
		}
		for _, v := range metric.Values {
			if len(v.EndTime) < len(domain.DateLayout) {
				continue
			}
			n, ok := numericValue(v.Value)
			if !ok {
				continue
			}
			byDay[v.EndTime[:len(domain.DateLayout)]] = n
		}
	}
	return result, nil
}

func numericValue(raw json.RawMessage) (int64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int64(f), true
}

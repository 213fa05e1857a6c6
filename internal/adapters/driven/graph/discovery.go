package graph

import (
	"context"
	"net/url"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
)

// maxPageListings bounds how many /me/accounts pages are followed.
const maxPageListings = 10

type pageEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type pagesResponse struct {
	Data   []pageEntry `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func (r *pagesResponse) validate(op string) error {
	for _, p := range r.Data {
		if p.ID == "" {
			return &domain.ProviderError{Op: op, Message: "page without id"}
		}
	}
	return nil
}

type businessAccount struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type pageAccountResponse struct {
	ID                       string           `json:"id"`
	InstagramBusinessAccount *businessAccount `json:"instagram_business_account"`
}

// DiscoverBusinessAccount lists the pages the user manages and returns the
// first one, in provider order, with a linked Instagram business account.
func (c *Client) DiscoverBusinessAccount(ctx context.Context, userToken string) (*domain.AccountIdentity, error) {
	pages, err := c.listPages(ctx, userToken)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, domain.ErrNoPages
	}

	for _, page := range pages {
		token := page.AccessToken
		if token == "" {
			token = userToken
		}

		params := url.Values{
			"fields":       {"instagram_business_account{id,username,name}"},
			"access_token": {token},
		}
		var resp pageAccountResponse
		if err := c.getJSON(ctx, OpProbePage, "/"+url.PathEscape(page.ID), params, &resp); err != nil {
			return nil, err
		}

		account := resp.InstagramBusinessAccount
		if account == nil || account.ID == "" {
			continue
		}

		displayName := account.Username
		if displayName == "" {
			displayName = account.Name
		}
		if displayName == "" {
			displayName = page.Name
		}
		return &domain.AccountIdentity{
			ExternalAccountID: account.ID,
			DisplayName:       displayName,
			AccountKind:       domain.AccountKindBusiness,
			LinkedPageID:      page.ID,
			PageAccessToken:   page.AccessToken,
		}, nil
	}

	return nil, domain.ErrNoLinkedAccount
}

// listPages follows cursor pagination and keeps provider order.
func (c *Client) listPages(ctx context.Context, userToken string) ([]pageEntry, error) {
	var pages []pageEntry
	after := ""
	for i := 0; i < maxPageListings; i++ {
		params := url.Values{
			"fields":       {"id,name,access_token"},
			"limit":        {"100"},
			"access_token": {userToken},
		}
		if after != "" {
			params.Set("after", after)
		}

		var resp pagesResponse
		if err := c.getJSON(ctx, OpListPages, "/me/accounts", params, &resp); err != nil {
			return nil, err
		}
		if err := resp.validate(OpListPages); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Data...)

		if resp.Paging.Next == "" || resp.Paging.Cursors.After == "" {
			break
		}
		after = resp.Paging.Cursors.After
	}
	return pages, nil
}

package github

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/go-github/v57/github"
)

// NewTestClient builds a Client whose API and upload endpoints both point at
// baseURL, typically an httptest.Server standing in for the GitHub API. No
// token is required.
func NewTestClient(httpClient *http.Client, baseURL, repository string) (*Client, error) {
	owner, repo, err := parseRepository(repository)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, err
	}

	gh := github.NewClient(httpClient)
	gh.BaseURL = endpoint
	gh.UploadURL = endpoint

	return &Client{
		client: gh,
		owner:  owner,
		repo:   repo,
		ctx:    context.Background(),
	}, nil
}

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/clearsift/clearsift/internal/finding"
	"github.com/clearsift/clearsift/internal/logging"
	"github.com/clearsift/clearsift/internal/pathfilter"
)

const (
	defaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"

	filesPerPage = 100
)

// Client provides access to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
	paths   *pathfilter.Checker
}

// NewClient creates a new GitHub client. paths filters excluded files out of
// PR data and diffs before they reach the reviewer; nil disables filtering.
func NewClient(token string, paths *pathfilter.Checker) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	return &Client{
		token:   token,
		apiURL:  defaultAPIURL,
		httpCli: &http.Client{Timeout: 60 * time.Second},
		paths:   paths,
	}, nil
}

// PRFile is one changed file in a pull request.
type PRFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	Patch     string `json:"patch"`
}

// PRData is the pull request metadata the audit embeds in prompts.
type PRData struct {
	Number       int      `json:"number"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	User         string   `json:"user"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	State        string   `json:"state"`
	HeadRef      string   `json:"head_ref"`
	HeadSHA      string   `json:"head_sha"`
	BaseRef      string   `json:"base_ref"`
	BaseSHA      string   `json:"base_sha"`
	Files        []PRFile `json:"files"`
	Additions    int      `json:"additions"`
	Deletions    int      `json:"deletions"`
	ChangedFiles int      `json:"changed_files"`
}

// Context converts PR data into the opaque context embedded in adjudication
// requests.
func (d *PRData) Context(repoName string) *finding.PRContext {
	if d == nil {
		return nil
	}
	return &finding.PRContext{
		RepoName:    repoName,
		PRNumber:    d.Number,
		Title:       d.Title,
		Description: d.Body,
	}
}

// prResponse mirrors the fields of the GitHub pulls endpoint we consume.
type prResponse struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"base"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	ChangedFiles int `json:"changed_files"`
}

// GetPRData fetches PR metadata and the changed-file list. repoName is in
// "owner/repo" form. Files matching the exclusion lists are dropped.
func (c *Client) GetPRData(ctx context.Context, repoName string, prNumber int) (*PRData, error) {
	var pr prResponse
	url := fmt.Sprintf("%s/repos/%s/pulls/%d", c.apiURL, repoName, prNumber)
	if err := c.getJSON(ctx, url, &pr); err != nil {
		return nil, fmt.Errorf("fetching PR #%d in %s: %w", prNumber, repoName, err)
	}

	files, err := c.getPRFiles(ctx, repoName, prNumber)
	if err != nil {
		return nil, err
	}

	return &PRData{
		Number:       pr.Number,
		Title:        pr.Title,
		Body:         pr.Body,
		User:         pr.User.Login,
		CreatedAt:    pr.CreatedAt,
		UpdatedAt:    pr.UpdatedAt,
		State:        pr.State,
		HeadRef:      pr.Head.Ref,
		HeadSHA:      pr.Head.SHA,
		BaseRef:      pr.Base.Ref,
		BaseSHA:      pr.Base.SHA,
		Files:        files,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
	}, nil
}

// getPRFiles pages through the files endpoint until a short page.
func (c *Client) getPRFiles(ctx context.Context, repoName string, prNumber int) ([]PRFile, error) {
	var files []PRFile
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/pulls/%d/files?per_page=%d&page=%d",
			c.apiURL, repoName, prNumber, filesPerPage, page)

		var batch []PRFile
		if err := c.getJSON(ctx, url, &batch); err != nil {
			return nil, fmt.Errorf("fetching PR files page %d: %w", page, err)
		}

		for _, f := range batch {
			if c.paths != nil && c.paths.IsExcluded(f.Filename) {
				logging.L().Debugw("excluding file from PR data", "file", f.Filename)
				continue
			}
			files = append(files, f)
		}

		if len(batch) < filesPerPage {
			return files, nil
		}
	}
}

// GetPRDiff fetches the unified diff for a pull request, with excluded
// files stripped out.
func (c *Client) GetPRDiff(ctx context.Context, repoName string, prNumber int) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d", c.apiURL, repoName, prNumber)

	body, err := c.get(ctx, url, "application/vnd.github.diff")
	if err != nil {
		return "", fmt.Errorf("fetching PR diff: %w", err)
	}

	diff := string(body)
	if c.paths != nil {
		diff = c.paths.FilterDiff(diff)
	}
	return diff, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url, "application/vnd.github.v3+json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == 404:
		return nil, fmt.Errorf("not found: %s", url)
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return nil, fmt.Errorf("authentication failed: %s", body)
	case resp.StatusCode != 200:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, body)
	}

	return body, nil
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// ParseRemoteURL extracts "owner/repo" from a git remote URL.
func ParseRemoteURL(url string) (string, error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1] + "/" + m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1] + "/" + m[2], nil
	}
	return "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

// Command github-summary builds me/summary.txt from public GitHub data so
// the portfolio bot always has a current, deterministic knowledge document.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	apiBase         = "https://api.github.com"
	defaultMaxRepos = 8
	requestTimeout  = 15 * time.Second
	maxRetries      = 3
	retrySleep      = 2 * time.Second
)

var qualityCheckPaths = map[string][]string{
	"has_ci":      {".github/workflows"},
	"has_tests":   {"tests", "test", "spec", "__tests__"},
	"has_docs":    {"docs", "documentation", "wiki"},
	"has_linting": {".pre-commit-config.yaml", ".golangci.yml", "Makefile", "package.json", ".eslintrc.json"},
	"has_docker":  {"Dockerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yaml"},
}

type user struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Bio         string `json:"bio"`
	Blog        string `json:"blog"`
	Email       string `json:"email"`
	Followers   int    `json:"followers"`
	PublicRepos int    `json:"public_repos"`
	HTMLURL     string `json:"html_url"`
}

type repo struct {
	Name           string   `json:"name"`
	FullName       string   `json:"full_name"`
	Description    string   `json:"description"`
	Language       string   `json:"language"`
	Fork           bool     `json:"fork"`
	Stargazers     int      `json:"stargazers_count"`
	Forks          int      `json:"forks_count"`
	OpenIssues     int      `json:"open_issues_count"`
	HasIssues      bool     `json:"has_issues"`
	Topics         []string `json:"topics"`
	PushedAt       string   `json:"pushed_at"`
	HTMLURL        string   `json:"html_url"`
	DefaultBranch  string   `json:"default_branch"`
	OwnerField     owner    `json:"owner"`
	LicenseField   *license `json:"license"`
	WatchersCount  int      `json:"watchers_count"`
	HasDiscussions bool     `json:"has_discussions"`
}

type owner struct {
	Login string `json:"login"`
}

type license struct {
	SPDXID string `json:"spdx_id"`
	Name   string `json:"name"`
}

type quality struct {
	flags      map[string]bool
	hasReadme  bool
	license    string
	openIssues int
	err        error
}

type client struct {
	http  *http.Client
	token string
}

func (c *client) get(rawURL string, params url.Values, out any) error {
	if params != nil {
		rawURL = rawURL + "?" + params.Encode()
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "portfolio-bot-summary")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("contact github: %w", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return json.Unmarshal(body, out)
		case resp.StatusCode == http.StatusNotFound:
			return errNotFound
		case resp.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("authentication failed; verify the github token")
		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
			if attempt == maxRetries {
				return fmt.Errorf("github rate limit exceeded; provide a token and retry")
			}
		default:
			if attempt == maxRetries {
				return fmt.Errorf("github request failed (status=%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
		}
		time.Sleep(retrySleep)
	}
	return fmt.Errorf("unexpected failure contacting the github api")
}

var errNotFound = fmt.Errorf("not found")

func (c *client) pathExists(ownerLogin, repoName, path string) bool {
	var probe json.RawMessage
	err := c.get(fmt.Sprintf("%s/repos/%s/%s/contents/%s", apiBase, ownerLogin, repoName, path), nil, &probe)
	return err == nil
}

func (c *client) fetchUser(username string) (*user, error) {
	var u user
	if err := c.get(apiBase+"/users/"+username, nil, &u); err != nil {
		if err == errNotFound {
			return nil, fmt.Errorf("user %q not found; check the username", username)
		}
		return nil, err
	}
	return &u, nil
}

func (c *client) fetchRepos(username string) ([]repo, error) {
	var repos []repo
	for page := 1; ; page++ {
		params := url.Values{
			"per_page":  {"100"},
			"page":      {fmt.Sprint(page)},
			"type":      {"owner"},
			"sort":      {"updated"},
			"direction": {"desc"},
		}
		var pageData []repo
		if err := c.get(apiBase+"/users/"+username+"/repos", params, &pageData); err != nil {
			return nil, err
		}
		repos = append(repos, pageData...)
		if len(pageData) < 100 {
			return repos, nil
		}
	}
}

func (c *client) inspectQuality(r repo) quality {
	q := quality{flags: map[string]bool{}, openIssues: r.OpenIssues}
	for key, paths := range qualityCheckPaths {
		for _, path := range paths {
			if c.pathExists(r.OwnerField.Login, r.Name, path) {
				q.flags[key] = true
				break
			}
		}
	}
	q.hasReadme = c.pathExists(r.OwnerField.Login, r.Name, "README.md") ||
		c.pathExists(r.OwnerField.Login, r.Name, "README")
	if r.LicenseField != nil {
		q.license = r.LicenseField.SPDXID
		if q.license == "" {
			q.license = r.LicenseField.Name
		}
	}
	return q
}

func pushedDate(r repo) string {
	t, err := time.Parse(time.RFC3339, r.PushedAt)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatRepoLine(r repo) string {
	var stats []string
	if r.Stargazers > 0 {
		stats = append(stats, fmt.Sprintf("Stars %d", r.Stargazers))
	}
	if r.Forks > 0 {
		stats = append(stats, fmt.Sprintf("Forks %d", r.Forks))
	}
	statsStr := ""
	if len(stats) > 0 {
		statsStr = " (" + strings.Join(stats, ", ") + ")"
	}

	lang := r.Language
	if lang == "" {
		lang = "Unknown"
	}
	description := r.Description
	if description == "" {
		description = "No description provided"
	}
	topicStr := ""
	if len(r.Topics) > 0 {
		topics := r.Topics
		if len(topics) > 5 {
			topics = topics[:5]
		}
		topicStr = " | Topics: " + strings.Join(topics, ", ")
	}
	lastUpdate := ""
	if d := pushedDate(r); d != "" {
		lastUpdate = " | Last update: " + d
	}

	return fmt.Sprintf("- %s [%s]%s%s\n  %s%s\n  Repository: %s",
		r.Name, lang, statsStr, lastUpdate, description, topicStr, r.HTMLURL)
}

func generateSummary(u *user, repos []repo, maxRepos int, includeForks bool, c *client) (string, error) {
	if !includeForks {
		kept := repos[:0]
		for _, r := range repos {
			if !r.Fork {
				kept = append(kept, r)
			}
		}
		repos = kept
	}
	if len(repos) == 0 {
		return "", fmt.Errorf("no public repositories found to summarise")
	}

	languageCounts := map[string]int{}
	for _, r := range repos {
		lang := r.Language
		if lang == "" {
			lang = "Other"
		}
		languageCounts[lang]++
	}
	type langCount struct {
		name  string
		count int
	}
	langs := make([]langCount, 0, len(languageCounts))
	for name, count := range languageCounts {
		langs = append(langs, langCount{name, count})
	}
	sort.Slice(langs, func(i, j int) bool {
		if langs[i].count != langs[j].count {
			return langs[i].count > langs[j].count
		}
		return langs[i].name < langs[j].name
	})
	if len(langs) > 5 {
		langs = langs[:5]
	}

	highlighted := append([]repo(nil), repos...)
	sort.Slice(highlighted, func(i, j int) bool {
		if highlighted[i].Stargazers != highlighted[j].Stargazers {
			return highlighted[i].Stargazers > highlighted[j].Stargazers
		}
		if highlighted[i].WatchersCount != highlighted[j].WatchersCount {
			return highlighted[i].WatchersCount > highlighted[j].WatchersCount
		}
		return highlighted[i].PushedAt > highlighted[j].PushedAt
	})
	if len(highlighted) > maxRepos {
		highlighted = highlighted[:maxRepos]
	}

	var lines []string
	name := u.Name
	if name == "" {
		name = u.Login
	}
	headline := name
	if u.Company != "" {
		headline += " (" + u.Company + ")"
	}
	lines = append(lines, fmt.Sprintf("GitHub profile summary for %s (%s).", headline, u.HTMLURL))
	if u.Bio != "" {
		lines = append(lines, strings.TrimSpace(u.Bio))
	}

	var contextBits []string
	if u.Location != "" {
		contextBits = append(contextBits, "Based in "+u.Location)
	}
	contextBits = append(contextBits,
		fmt.Sprintf("%d followers", u.Followers),
		fmt.Sprintf("%d public repositories", u.PublicRepos),
	)
	lines = append(lines, strings.Join(contextBits, "; ")+".")

	lines = append(lines, "", "Primary languages:")
	for _, lc := range langs {
		percent := float64(lc.count) / float64(len(repos)) * 100
		lines = append(lines, fmt.Sprintf("- %s: %d repos (%.1f%% of portfolio)", lc.name, lc.count, percent))
	}

	lines = append(lines, "",
		fmt.Sprintf("Highlighted repositories (top %d by stars and recent activity):", len(highlighted)))
	qualities := make([]quality, len(highlighted))
	for i, r := range highlighted {
		qualities[i] = c.inspectQuality(r)
		lines = append(lines, formatRepoLine(r))

		var notes []string
		q := qualities[i]
		if q.flags["has_ci"] {
			notes = append(notes, "CI/CD workflows configured")
		}
		if q.flags["has_tests"] {
			notes = append(notes, "Automated tests present")
		}
		if q.flags["has_docs"] {
			notes = append(notes, "Project documentation directory")
		}
		if q.flags["has_linting"] {
			notes = append(notes, "Linting/config automation files")
		}
		if q.flags["has_docker"] {
			notes = append(notes, "Containerization assets")
		}
		if !q.hasReadme {
			notes = append(notes, "Missing README")
		}
		if q.license != "" {
			notes = append(notes, "License: "+q.license)
		}
		if q.openIssues > 0 {
			notes = append(notes, fmt.Sprintf("Open issues: %d", q.openIssues))
		}
		if len(notes) > 0 {
			lines = append(lines, "  Quality signals: "+strings.Join(notes, "; "))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "Recent activity:")
	recent := append([]repo(nil), repos...)
	sort.Slice(recent, func(i, j int) bool { return recent[i].PushedAt > recent[j].PushedAt })
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for _, r := range recent {
		date := pushedDate(r)
		if date == "" {
			date = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s updated on %s", r.Name, date))
	}

	lines = append(lines, "", "How to collaborate:")
	if u.Blog != "" {
		lines = append(lines, "- Portfolio or blog: "+u.Blog)
	}
	if u.Email != "" {
		lines = append(lines, "- Email: "+u.Email)
	}
	lines = append(lines, "- GitHub profile: "+u.HTMLURL)

	countTrue := func(flag string) int {
		n := 0
		for _, q := range qualities {
			if q.flags[flag] {
				n++
			}
		}
		return n
	}
	lines = append(lines, "", "Aggregate quality indicators across highlighted repositories:")
	total := len(qualities)
	lines = append(lines,
		fmt.Sprintf("- CI/CD workflows present in %d of %d", countTrue("has_ci"), total),
		fmt.Sprintf("- Automated tests in %d of %d", countTrue("has_tests"), total),
		fmt.Sprintf("- Dedicated docs folders in %d of %d", countTrue("has_docs"), total),
		fmt.Sprintf("- Lint/tooling configs in %d of %d", countTrue("has_linting"), total),
		fmt.Sprintf("- Containerization support in %d of %d", countTrue("has_docker"), total),
	)

	lines = append(lines, "", "Generated on "+time.Now().UTC().Format(time.RFC3339))
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n", nil
}

func main() {
	var (
		username     = flag.String("username", "", "GitHub username to summarise (required)")
		output       = flag.String("output", "me/summary.txt", "Path to write the summary")
		maxRepos     = flag.Int("max-repos", defaultMaxRepos, "Number of highlighted repositories to include")
		includeForks = flag.Bool("include-forks", false, "Include forked repositories in statistics")
		token        = flag.String("token", "", "GitHub personal access token")
		tokenEnv     = flag.String("token-env", "", "Environment variable holding the GitHub token")
	)
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "Error: -username is required")
		flag.Usage()
		os.Exit(2)
	}

	resolvedToken := *token
	if resolvedToken == "" && *tokenEnv != "" {
		resolvedToken = os.Getenv(*tokenEnv)
	}

	c := &client{http: &http.Client{Timeout: requestTimeout}, token: resolvedToken}

	u, err := c.fetchUser(*username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	repos, err := c.fetchRepos(*username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n := *maxRepos
	if n < 1 {
		n = 1
	}
	summary, err := generateSummary(u, repos, n, *includeForks, c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := os.WriteFile(*output, []byte(summary), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Summary written to %s\n", *output)
}

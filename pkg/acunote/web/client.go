package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"github.com/harrisonrobin/planbridge/pkg/acunote"
	"github.com/harrisonrobin/planbridge/pkg/sprint"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

const (
	loginPath   = "/login"
	sprintsPath = "/projects/%s/sprints"
	importPath  = "/projects/%s/sprints/%s/import"
)

// ErrLoginFailed is returned when Acunote does not accept the credentials.
var ErrLoginFailed = errors.New("acunote login failed")

// Credentials for the Acunote web login form.
type Credentials struct {
	Username string
	Password string
}

// Client drives the Acunote web UI the way a browser session would: it logs
// in once, keeps the session cookie and scrapes the sprint list.
type Client struct {
	baseURL   *url.URL
	projectID string
	creds     Credentials
	http      *http.Client
	loggedIn  bool
}

// NewClient creates a client for the project projectID on the Acunote
// instance at baseURL. httpClient may be nil.
func NewClient(baseURL, projectID string, creds Credentials, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid acunote url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := *httpClient
	c.Jar = jar
	return &Client{baseURL: u, projectID: projectID, creds: creds, http: &c}, nil
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL.String() + fmt.Sprintf(format, args...)
}

// Login posts the login form. It is called implicitly by the other methods.
func (c *Client) Login(ctx context.Context) error {
	doc, err := c.getHTML(ctx, c.url(loginPath))
	if err != nil {
		return fmt.Errorf("could not load login page: %w", err)
	}

	form := url.Values{
		"login[username]": {c.creds.Username},
		"login[password]": {c.creds.Password},
	}
	if token := csrfToken(doc); token != "" {
		form.Set("authenticity_token", token)
	}

	resp, err := c.postForm(ctx, c.url(loginPath), form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// A successful login redirects away from the login form.
	if resp.StatusCode >= 400 || strings.HasSuffix(resp.Request.URL.Path, loginPath) {
		return fmt.Errorf("%w for user %q (status %d)", ErrLoginFailed, c.creds.Username, resp.StatusCode)
	}
	c.loggedIn = true
	return nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	return c.Login(ctx)
}

// FindSprintByName implements sprint.Repository.
func (c *Client) FindSprintByName(ctx context.Context, name string) (*sprint.Ref, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}
	doc, err := c.getHTML(ctx, c.url(sprintsPath, c.projectID))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve sprints: %w", err)
	}

	prefix := fmt.Sprintf(sprintsPath, c.projectID) + "/"
	link := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\d+/?$`)
	for _, a := range findAll(doc, "a") {
		href := attr(a, "href")
		if u, err := url.Parse(href); err == nil {
			href = u.Path
		}
		if link.MatchString(href) && strings.TrimSpace(text(a)) == name {
			return &sprint.Ref{Name: name, Href: href}, nil
		}
	}
	return nil, nil
}

// CreateSprint implements sprint.Repository.
func (c *Client) CreateSprint(ctx context.Context, name string) (*sprint.Ref, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}
	resp, err := c.postForm(ctx, c.url(sprintsPath, c.projectID), url.Values{
		"sprint[name]": {name},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("create sprint %q: unexpected status %d", name, resp.StatusCode)
	}
	log.Printf("Created sprint %q", name)
	return &sprint.Ref{Name: name, Href: resp.Request.URL.Path}, nil
}

// Upload implements sprint.Uploader by posting the records as a CSV import.
func (c *Client) Upload(ctx context.Context, ref sprint.Ref, records []acunote.Record) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}
	id := ref.ID()
	if id == "" {
		return fmt.Errorf("sprint %q has no id in %q", ref.Name, ref.Href)
	}

	var csvBuf bytes.Buffer
	if err := acunote.WriteCSV(&csvBuf, records); err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("data", id+".csv")
	if err != nil {
		return err
	}
	if _, err := part.Write(csvBuf.Bytes()); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(importPath, c.projectID, id), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("import into sprint %q: %w", ref.Name, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("import into sprint %q: %w", ref.Name, sprint.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("import into sprint %q: unexpected status %d", ref.Name, resp.StatusCode)
	}
	return nil
}

func (c *Client) getHTML(ctx context.Context, u string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", u, resp.StatusCode)
	}
	return html.Parse(resp.Body)
}

func (c *Client) postForm(ctx context.Context, u string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

// csrfToken returns the Rails authenticity token of a page, if any.
func csrfToken(doc *html.Node) string {
	for _, m := range findAll(doc, "meta") {
		if attr(m, "name") == "csrf-token" {
			return attr(m, "content")
		}
	}
	for _, in := range findAll(doc, "input") {
		if attr(in, "name") == "authenticity_token" {
			return attr(in, "value")
		}
	}
	return ""
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("geoscrape/session")

// Error kinds surfaced by the session layer. Wrapped errors carry the
// concrete detail; match with errors.Is.
var (
	ErrUsage   = errors.New("invalid argument")
	ErrLogin   = errors.New("login state error")
	ErrTimeout = errors.New("request timed out")
	ErrHTTP    = errors.New("http request failed")
)

// The site blocks the default Go user agent, so a browser-looking one
// is picked at random unless the caller configures its own.
var userAgents = []string{
	"Mozilla/4.0 (compatible; MSIE 6.0; Windows NT 5.1)",
	"Mozilla/4.0 (compatible; MSIE 7.0; Windows NT 6.0)",
	"Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.1)",
	"Mozilla/5.0 (compatible; Konqueror/3.2; Linux 2.6.2) (KHTML, like Gecko)",
	"Mozilla/5.0 (Macintosh; U; PPC Mac OS X; en) AppleWebKit/125.2 (KHTML, like Gecko) Safari/125.8",
	"Mozilla/5.0 (Windows; U; Windows NT 5.1; en-US) AppleWebKit/525.13 (KHTML, like Gecko) Chrome/0.A.B.C Safari/525.13",
	"Mozilla/5.0 (Windows; U; Windows NT 5.1; de; rv:1.9.0.10) Gecko/2009042316 Firefox/3.0.10",
	"Mozilla/5.0 (X11; U; Linux i586; en-US; rv:1.7.3) Gecko/20040924 Epiphany/1.4.4 (Ubuntu)",
	"Opera/9.80 (Macintosh; Intel Mac OS X; U; en) Presto/2.2.15 Version/10.00",
}

const DefaultBaseURL = "https://www.geocaching.com"

const DefaultTimeout = 8 * time.Second

// Client is the single shared network identity behind every request
// the library makes. It is not safe for concurrent use; callers that
// share one across goroutines must serialize access themselves.
type Client struct {
	BaseURL *url.URL
	Http    *resty.Client

	loggedIn      bool
	sessionCookie string
}

type Options struct {
	// defaults to DefaultBaseURL
	BaseURL string
	// picked at random from a fixed pool when empty
	UserAgent string
	// defaults to DefaultTimeout
	Timeout time.Duration
}

func New(opts Options) (*Client, error) {
	rawURL := opts.BaseURL
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = userAgents[rand.Intn(len(userAgents))]
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(rawURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(timeout)

	c := &Client{
		BaseURL: baseURL,
		Http:    client,
	}
	return c, nil
}

// Login submits the credentials to the login endpoint and records the
// session cookie from the response. Fails with ErrUsage when either
// credential is empty and with ErrLogin when already logged in.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	if username == "" {
		return fmt.Errorf("%w: missing username", ErrUsage)
	}
	if password == "" {
		return fmt.Errorf("%w: missing password", ErrUsage)
	}
	if c.loggedIn {
		span.SetStatus(codes.Error, "already logged in")
		return fmt.Errorf("%w: already logged in", ErrLogin)
	}

	res, _, err := c.Post(ctx, "/login/default.aspx", map[string]string{
		"ctl00$ContentBody$myUsername": username,
		"ctl00$ContentBody$myPassword": password,
		"ctl00$ContentBody$Button1":    "Login",
		"ctl00$ContentBody$cookie":     "on",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return err
	}

	c.sessionCookie = res.Header().Get("Set-Cookie")
	c.loggedIn = true
	return nil
}

// Logout drops the session state and issues a best-effort GET to the
// site's reset endpoint. Fails with ErrLogin when not logged in.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	if !c.loggedIn {
		span.SetStatus(codes.Error, "not logged in")
		return fmt.Errorf("%w: not logged in", ErrLogin)
	}

	c.loggedIn = false
	c.sessionCookie = ""
	if jar, err := cookiejar.New(nil); err == nil {
		c.Http.SetCookieJar(jar)
	}

	_, _, err := c.Get(ctx, "/login/default.aspx?RESET=Y")
	if err != nil {
		span.RecordError(err)
	}
	return nil
}

func (c *Client) LoggedIn() bool {
	return c.loggedIn && c.sessionCookie != ""
}

// Get issues a GET request against the configured host. The session
// cookie rides along automatically once logged in. Accepts success and
// redirect status codes.
func (c *Client) Get(ctx context.Context, path string) (*resty.Response, string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, "", classifyTransport("GET", path, err)
	}
	if !res.IsSuccess() && !isRedirect(res.StatusCode()) {
		return nil, "", fmt.Errorf("%w: GET %s returned status %d", ErrHTTP, path, res.StatusCode())
	}
	return res, res.String(), nil
}

// Post first GETs the same path to scrape the site's hidden
// anti-forgery fields, merges them into the form and submits it
// URL-encoded. The site rejects any POST that does not replay the
// token set of a fresh GET.
func (c *Client) Post(ctx context.Context, path string, form map[string]string) (*resty.Response, string, error) {
	ctx, span := tracer.Start(ctx, "client:Post")
	defer span.End()

	meta, err := c.formMetadata(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape anti-forgery fields")
		return nil, "", err
	}
	for k, v := range form {
		meta[k] = v
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(meta).
		Post(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, "", classifyTransport("POST", path, err)
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "bad status")
		return nil, "", fmt.Errorf("%w: POST %s returned status %d", ErrHTTP, path, res.StatusCode())
	}
	return res, res.String(), nil
}

// PostJSON submits a JSON body without the anti-forgery pre-fetch; the
// map search endpoint takes a JSON envelope instead of a form.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*resty.Response, string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, "", classifyTransport("POST", path, err)
	}
	if !res.IsSuccess() {
		return nil, "", fmt.Errorf("%w: POST %s returned status %d", ErrHTTP, path, res.StatusCode())
	}
	return res, res.String(), nil
}

var csrfFieldName = regexp.MustCompile(`^__[A-Z]+$`)

func (c *Client) formMetadata(ctx context.Context, path string) (map[string]string, error) {
	_, body, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}

	meta := map[string]string{}
	doc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if csrfFieldName.MatchString(name) {
			meta[name] = s.AttrOr("value", "")
		}
	})
	return meta, nil
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func classifyTransport(method, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s %s: %v", ErrTimeout, method, path, err)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrHTTP, method, path, err)
}

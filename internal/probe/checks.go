package probe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/Sentinel/internal/domain"
	"github.com/shaiso/Sentinel/internal/engine"
)

// DefaultSlowAfter — порог медленного ответа страницы.
const DefaultSlowAfter = 3 * time.Second

// Target — проверяемый адрес.
type Target struct {
	// Name — имя проверки (default: путь URL).
	Name string

	URL string

	// Method — метод запроса (GET, HEAD, OPTIONS).
	Method string

	// Timeout — таймаут одного запроса.
	Timeout time.Duration

	// Expect — допустимые коды ответа (default: любые 2xx/3xx).
	Expect []int
}

// CheckName возвращает имя проверки: Name или путь URL.
func (t Target) CheckName() string {
	if t.Name != "" {
		return t.Name
	}
	if u, err := url.Parse(t.URL); err == nil && u.Host != "" {
		if u.Path == "" {
			return "/"
		}
		return u.Path
	}
	return t.URL
}

func (t Target) request() Request {
	return Request{URL: t.URL, Method: t.Method, Timeout: t.Timeout}
}

// Options — общие параметры шагов.
type Options struct {
	// SlowAfter — ответ не быстрее этого порога даёт warn (default: 3s).
	SlowAfter time.Duration

	// RetryBase — базовая подсказка RetryAfter для Classify.
	RetryBase time.Duration

	// Policy — политика повторов шага.
	Policy engine.RetryPolicy
}

func (o Options) slowAfter() time.Duration {
	if o.SlowAfter <= 0 {
		return DefaultSlowAfter
	}
	return o.SlowAfter
}

// fetchAccepted выполняет запрос и классифицирует неудачу.
func fetchAccepted(ctx context.Context, f Fetcher, t Target, a engine.Attempt, opts Options) (*Response, error) {
	resp, err := f.Fetch(ctx, t.request())
	if err != nil {
		return nil, Classify(nil, err, a, opts.RetryBase)
	}
	if !accepted(resp, t.Expect) {
		return nil, Classify(resp, nil, a, opts.RetryBase)
	}
	return resp, nil
}

// timed классифицирует успешный ответ по задержке.
func timed(name string, resp *Response, slowAfter time.Duration) domain.CheckResult {
	if resp.Latency >= slowAfter {
		return domain.Warn(name, resp.Latency,
			fmt.Sprintf("slow response: %dms (threshold %dms)", resp.Latency.Milliseconds(), slowAfter.Milliseconds()))
	}
	return domain.Pass(name, resp.Latency)
}

// PageCheck проверяет доступность и скорость страницы.
// pass — быстрее SlowAfter, warn — медленнее.
func PageCheck(f Fetcher, t Target, opts Options) engine.Step {
	name := t.CheckName()

	return engine.Step{
		Name:   name,
		Target: t.URL,
		Policy: opts.Policy,
		Run: func(ctx context.Context, a engine.Attempt) (domain.CheckResult, error) {
			resp, err := fetchAccepted(ctx, f, t, a, opts)
			if err != nil {
				return domain.CheckResult{}, err
			}
			return timed(name, resp, opts.slowAfter()), nil
		},
	}
}

// APICheck проверяет API endpoint.
// По умолчанию использует OPTIONS, чтобы не вызывать сам обработчик.
func APICheck(f Fetcher, t Target, opts Options) engine.Step {
	if t.Method == "" {
		t.Method = http.MethodOptions
	}
	if len(t.Expect) == 0 && t.Method == http.MethodOptions {
		// 405 на OPTIONS означает, что endpoint жив.
		t.Expect = []int{http.StatusOK, http.StatusNoContent, http.StatusMethodNotAllowed}
	}
	if t.Name == "" {
		t.Name = "api:" + t.CheckName()
	}
	return PageCheck(f, t, opts)
}

// SitemapCheck проверяет sitemap.xml: ответ должен содержать
// <urlset> или <sitemapindex>, иначе warn.
func SitemapCheck(f Fetcher, t Target, opts Options) engine.Step {
	if t.Name == "" {
		t.Name = "sitemap"
	}

	return engine.Step{
		Name:   t.Name,
		Target: t.URL,
		Policy: opts.Policy,
		Run: func(ctx context.Context, a engine.Attempt) (domain.CheckResult, error) {
			resp, err := fetchAccepted(ctx, f, t, a, opts)
			if err != nil {
				return domain.CheckResult{}, err
			}

			if !bytes.Contains(resp.Body, []byte("<urlset")) && !bytes.Contains(resp.Body, []byte("<sitemapindex")) {
				return domain.Warn(t.Name, resp.Latency, "sitemap has no <urlset> or <sitemapindex>"), nil
			}

			result := domain.Pass(t.Name, resp.Latency)
			result.Message = fmt.Sprintf("%d urls", bytes.Count(resp.Body, []byte("<loc>")))
			return result, nil
		},
	}
}

// RobotsCheck проверяет robots.txt.
// warn, если нет директивы Sitemap или весь сайт закрыт от индексации.
func RobotsCheck(f Fetcher, t Target, opts Options) engine.Step {
	if t.Name == "" {
		t.Name = "robots"
	}

	return engine.Step{
		Name:   t.Name,
		Target: t.URL,
		Policy: opts.Policy,
		Run: func(ctx context.Context, a engine.Attempt) (domain.CheckResult, error) {
			resp, err := fetchAccepted(ctx, f, t, a, opts)
			if err != nil {
				return domain.CheckResult{}, err
			}

			robots := ParseRobots(resp.Body)
			switch {
			case robots.DisallowAll:
				return domain.Warn(t.Name, resp.Latency, "robots.txt disallows all crawlers"), nil
			case len(robots.Sitemaps) == 0:
				return domain.Warn(t.Name, resp.Latency, "robots.txt has no Sitemap directive"), nil
			default:
				return domain.Pass(t.Name, resp.Latency), nil
			}
		},
	}
}

// Robots — разобранный robots.txt.
type Robots struct {
	// Sitemaps — значения директив Sitemap.
	Sitemaps []string

	// DisallowAll — "Disallow: /" для "User-agent: *".
	DisallowAll bool
}

// ParseRobots разбирает robots.txt.
func ParseRobots(body []byte) Robots {
	var r Robots
	wildcard := false

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "sitemap":
			if value != "" {
				r.Sitemaps = append(r.Sitemaps, value)
			}
		case "user-agent":
			wildcard = value == "*"
		case "disallow":
			if wildcard && value == "/" {
				r.DisallowAll = true
			}
		}
	}
	return r
}

// SitemapPing уведомляет поисковую систему о sitemap.
// pingURL — адрес вида "https://www.bing.com/ping?sitemap=".
func SitemapPing(f Fetcher, name, pingURL, sitemapURL string, opts Options) engine.Step {
	t := Target{
		Name: name,
		URL:  pingURL + url.QueryEscape(sitemapURL),
	}

	return engine.Step{
		Name:   name,
		Target: t.URL,
		Policy: opts.Policy,
		Run: func(ctx context.Context, a engine.Attempt) (domain.CheckResult, error) {
			if sitemapURL == "" {
				return domain.Fail(name, "no sitemap url to submit"), nil
			}
			resp, err := fetchAccepted(ctx, f, t, a, opts)
			if err != nil {
				return domain.CheckResult{}, err
			}
			return domain.Pass(name, resp.Latency), nil
		},
	}
}

package recipeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mnuddindev/cookpulse/internal/metrics"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 4
	defaultCacheSize   = 512
	maxSearchResults   = 50
)

// ErrNotFound is returned for ids the API does not know.
var ErrNotFound = utils.NotFound("recipe_not_found")

// Recipe is the subset of an external recipe record the app renders.
type Recipe struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Image          string `json:"image,omitempty"`
	Summary        string `json:"summary,omitempty"`
	ReadyInMinutes int    `json:"readyInMinutes,omitempty"`
	Servings       int    `json:"servings,omitempty"`
	SourceURL      string `json:"sourceUrl,omitempty"`

	// Origin is filled in by callers mixing local and external records.
	Origin string `json:"origin,omitempty"`
}

type searchResponse struct {
	Results []Recipe `json:"results"`
}

// Client talks to the external recipe API. Recipes are immutable upstream, so
// lookups by id go through an LRU cache.
type Client struct {
	baseURL     string
	apiKey      string
	timeout     time.Duration
	concurrency int64
	cache       *lru.Cache
	log         *logger.Logger
	metrics     *metrics.Metrics
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = int64(n)
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
		cache:       cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) count(endpoint, outcome string) {
	if c.metrics != nil {
		c.metrics.RecipeAPICalls.WithLabelValues(endpoint, outcome).Inc()
	}
}

func (c *Client) cacheResult(result string) {
	if c.metrics != nil {
		c.metrics.RecipeAPICache.WithLabelValues(result).Inc()
	}
}

// get fetches path into out. A 404 maps to ErrNotFound; transport failures and other
// non-2xx answers are transient.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return utils.Transient("try_again", err.Error())
	}
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("apiKey", c.apiKey)
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(c.baseURL + path + "?" + query.Encode())
	agent.Timeout(timeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.count(endpoint, "error")
		c.log.Warn(ctx).WithError(err).WithMeta(utils.Map{"endpoint": endpoint}).Logs("recipe API request failed")
		return utils.Transient("try_again", err.Error())
	}
	switch {
	case code == fiber.StatusNotFound:
		c.count(endpoint, "not_found")
		return ErrNotFound
	case code < 200 || code > 299:
		c.count(endpoint, "error")
		c.log.Warn(ctx).WithMeta(utils.Map{"endpoint": endpoint, "status": strconv.Itoa(code)}).Logs("recipe API returned an error status")
		return utils.Transient("try_again", "recipe API status "+strconv.Itoa(code))
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.count(endpoint, "error")
		return utils.ErrInternalServerError.WithCause(err)
	}
	c.count(endpoint, "ok")
	return nil
}

// GetRecipe returns one recipe, from cache when possible.
func (c *Client) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	if id <= 0 {
		return nil, utils.Validation("invalid_recipe_id")
	}
	if v, ok := c.cache.Get(id); ok {
		c.cacheResult("hit")
		r := v.(Recipe)
		return &r, nil
	}
	c.cacheResult("miss")

	var r Recipe
	if err := c.get(ctx, "information", "/recipes/"+strconv.FormatInt(id, 10)+"/information", nil, &r); err != nil {
		return nil, err
	}
	if r.ID == 0 {
		r.ID = id
	}
	c.cache.Add(id, r)
	return &r, nil
}

// GetRecipes fetches ids concurrently with at most the configured number of calls in
// flight. The result keeps the order of ids and skips ids the API does not know.
func (c *Client) GetRecipes(ctx context.Context, ids []int64) ([]Recipe, error) {
	found := make([]*Recipe, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(c.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return utils.Transient("try_again", err.Error())
			}
			defer sem.Release(1)

			r, err := c.GetRecipe(gctx, id)
			if errors.Is(err, ErrNotFound) || utils.IsKind(err, utils.KindValidation) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Recipe, 0, len(ids))
	for _, r := range found {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Search asks the API for up to n recipes matching query.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, utils.Validation("query_required")
	}
	if n <= 0 || n > maxSearchResults {
		n = 10
	}
	var resp searchResponse
	q := url.Values{"query": {query}, "number": {strconv.Itoa(n)}}
	if err := c.get(ctx, "search", "/recipes/complexSearch", q, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

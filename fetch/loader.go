// Package fetch loads the catalog from the storefront backend into a store.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/logic"
)

// ItemsPath is the backend endpoint listing the catalog.
const ItemsPath = "/items"

// maxBodyBytes caps how much of a catalog response is read.
const maxBodyBytes = 8 << 20

// Dispatcher accepts actions. *store.Store satisfies it.
type Dispatcher interface {
	Dispatch(action logic.Action) logic.State
}

// CatalogLoader fetches the catalog and reports it to a Dispatcher.
type CatalogLoader struct {
	baseURL    string
	client     *http.Client
	dispatcher Dispatcher
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a CatalogLoader.
type Option func(*CatalogLoader)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(l *CatalogLoader) { l.client = client }
}

// WithTimeout bounds a single Load. Zero means no extra bound beyond ctx.
func WithTimeout(timeout time.Duration) Option {
	return func(l *CatalogLoader) { l.timeout = timeout }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *CatalogLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewCatalogLoader creates a loader for the backend at baseURL.
func NewCatalogLoader(baseURL string, dispatcher Dispatcher, opts ...Option) *CatalogLoader {
	l := &CatalogLoader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     http.DefaultClient,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type itemsResponse struct {
	Items []logic.Item `json:"items"`
}

// Load fetches the catalog, then dispatches AddInitialItems followed by
// ToggleLoading(false). On any error nothing is dispatched, so the loading
// flag stays as it was.
func (l *CatalogLoader) Load(ctx context.Context) error {
	items, err := l.Fetch(ctx)
	if err != nil {
		l.logger.Error("catalog load failed", zap.String("base_url", l.baseURL), zap.Error(err))
		return err
	}

	l.dispatcher.Dispatch(logic.AddInitialItems{Items: items})
	l.dispatcher.Dispatch(logic.ToggleLoading{Value: false})

	l.logger.Info("catalog loaded", zap.Int("items", len(items)))
	return nil
}

// Fetch retrieves and validates the catalog without dispatching anything.
func (l *CatalogLoader) Fetch(ctx context.Context) ([]logic.Item, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	endpoint, err := url.JoinPath(l.baseURL, ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("build catalog url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, logic.NewFailedPreconditionf("catalog backend returned status %d", resp.StatusCode)
	}

	var body itemsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, logic.NewInvalidArgumentf("decode catalog: %v", err)
	}
	if body.Items == nil {
		body.Items = []logic.Item{}
	}

	if err := validate(body.Items); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func validate(items []logic.Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if _, dup := seen[item.ID]; dup {
			return logic.NewInvalidArgumentf("%s: %s", logic.ErrMsgDuplicateItemID, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

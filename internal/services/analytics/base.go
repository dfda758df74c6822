package analytics

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "FxCast/pkg/config"
    xhttp "FxCast/pkg/http"
)

// ErrNotConfigured is returned when no analytics service URL is set.
var ErrNotConfigured = errors.New("analytics service not configured")

const defaultTimeout = 3 * time.Second

// HTTPServiceBase holds the client and base URL shared by the analytics service adapters.
type HTTPServiceBase struct {
    baseURL  string
    client   *xhttp.Client
    attempts int
    backoff  time.Duration
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
    timeout := cfg.Analytics.Timeout
    if timeout <= 0 {
        timeout = defaultTimeout
    }
    return &HTTPServiceBase{
        baseURL:  strings.TrimRight(cfg.Analytics.ServiceURL, "/"),
        client:   xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent("fxcast")),
        attempts: cfg.Analytics.Attempts,
        backoff:  50 * time.Millisecond,
    }
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return ErrNotConfigured
    }
    err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method: xhttp.MethodPost,
        URL:    b.baseURL + path,
        Headers: map[string]string{
            "Content-Type": "application/json",
        },
        Body: payload,
    }, dest)
    if err != nil {
        return fmt.Errorf("post %s: %w", path, err)
    }
    return nil
}

// PostJSONWithRetry retries transient failures (transport errors and 5xx) up to the
// configured attempt count with linear backoff.
func (b *HTTPServiceBase) PostJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}) error {
    if b.attempts <= 1 {
        return b.PostJSON(ctx, path, payload, dest)
    }
    var err error
    for i := 1; i <= b.attempts; i++ {
        err = b.PostJSON(ctx, path, payload, dest)
        if err == nil || !transient(err) || i == b.attempts {
            return err
        }
        select {
        case <-time.After(time.Duration(i) * b.backoff):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}

func transient(err error) bool {
    if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
        return false
    }
    var se *xhttp.StatusError
    if errors.As(err, &se) {
        return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
    }
    return true
}

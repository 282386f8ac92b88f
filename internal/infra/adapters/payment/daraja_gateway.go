// File: internal/infra/adapters/payment/daraja_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*DarajaGateway)(nil)

const (
	darajaTimestampLayout = "20060102150405"
	// returned by stkpushquery while the customer has not answered the prompt
	darajaStillProcessing = "500.001.1001"
	// refresh the token this long before Daraja expires it
	tokenSkew = 60 * time.Second
)

type DarajaConfig struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	TransactionType string
	Timeout         time.Duration
}

// DarajaGateway implements adapter.PaymentGateway against Safaricom's Daraja API
// (OAuth client credentials, STK push and STK push query).
type DarajaGateway struct {
	cfg    DarajaConfig
	client *http.Client
	now    func() time.Time
	log    *zerolog.Logger

	tokens   singleflight.Group
	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewDarajaGateway(cfg DarajaConfig, logger *zerolog.Logger) (*DarajaGateway, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, errors.New("daraja consumer credentials empty")
	}
	if cfg.ShortCode == "" || cfg.Passkey == "" {
		return nil, errors.New("daraja shortcode or passkey empty")
	}
	if _, err := url.ParseRequestURI(cfg.CallbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	l := logger.With().Str("component", "daraja").Logger()
	return &DarajaGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
		log:    &l,
	}, nil
}

func (g *DarajaGateway) Name() string { return "daraja" }

// password is base64(shortcode + passkey + timestamp) as Daraja expects.
func (g *DarajaGateway) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.ShortCode + g.cfg.Passkey + ts))
}

func (g *DarajaGateway) timestamp() string {
	return g.now().Format(darajaTimestampLayout)
}

// accessToken returns the cached bearer token or fetches a new one. Concurrent
// callers share a single in-flight fetch. The fetch runs on a detached context
// bounded by the gateway timeout, so one caller giving up does not fail the
// others waiting on it.
func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.token != "" && g.now().Before(g.tokenExp) {
		t := g.token
		g.mu.Unlock()
		return t, nil
	}
	g.mu.Unlock()

	ch := g.tokens.DoChan("token", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout)
		defer cancel()
		return g.fetchToken(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *DarajaGateway) fetchToken(ctx context.Context) (string, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall(g.Name(), "token", transportResult(err), time.Since(start))
		return "", fmt.Errorf("%w: oauth: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveGatewayCall(g.Name(), "token", "error", time.Since(start))
		return "", statusErr("oauth", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		metrics.ObserveGatewayCall(g.Name(), "token", "error", time.Since(start))
		return "", fmt.Errorf("%w: oauth: empty access token", domain.ErrGatewayError)
	}
	metrics.ObserveGatewayCall(g.Name(), "token", "ok", time.Since(start))

	ttl := time.Hour
	if secs, err := strconv.Atoi(strings.TrimSpace(out.ExpiresIn)); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	if ttl > tokenSkew {
		ttl -= tokenSkew
	}

	g.mu.Lock()
	g.token = out.AccessToken
	g.tokenExp = g.now().Add(ttl)
	g.mu.Unlock()
	return out.AccessToken, nil
}

func (g *DarajaGateway) dropToken() {
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
}

// Push sends an STK push (Lipa na M-Pesa Online) prompt to req.Phone.
func (g *DarajaGateway) Push(ctx context.Context, req adapter.PushRequest) (adapter.PushResult, error) {
	if !req.Amount.IsInteger() {
		return adapter.PushResult{}, fmt.Errorf("%w: amount %s is not whole shillings", domain.ErrGatewayError, req.Amount)
	}
	amount := req.Amount.IntPart()
	if amount < 1 {
		return adapter.PushResult{}, fmt.Errorf("%w: amount must be at least 1", domain.ErrGatewayError)
	}
	ts := g.timestamp()
	payload := map[string]any{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"TransactionType":   g.cfg.TransactionType,
		"Amount":            strconv.FormatInt(amount, 10),
		"PartyA":            req.Phone,
		"PartyB":            g.cfg.ShortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  req.Reference,
		"TransactionDesc":   req.Description,
	}

	var out struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
		ErrorCode           string `json:"errorCode"`
		ErrorMessage        string `json:"errorMessage"`
	}
	status, err := g.post(ctx, "push", "/mpesa/stkpush/v1/processrequest", payload, &out)
	if err != nil {
		return adapter.PushResult{}, err
	}
	if status != http.StatusOK || out.ResponseCode != "0" || out.CheckoutRequestID == "" {
		msg := firstNonEmpty(out.ErrorMessage, out.CustomerMessage, out.ResponseDescription, http.StatusText(status))
		if status >= 500 {
			return adapter.PushResult{}, fmt.Errorf("%w: stk push: %s", domain.ErrGatewayUnavailable, msg)
		}
		return adapter.PushResult{}, fmt.Errorf("%w: stk push: %s", domain.ErrGatewayError, msg)
	}
	return adapter.PushResult{
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

// QueryStatus asks Daraja for the result of an earlier push.
func (g *DarajaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (adapter.StatusResult, error) {
	ts := g.timestamp()
	payload := map[string]any{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	var out struct {
		ResponseCode string          `json:"ResponseCode"`
		ResultCode   json.RawMessage `json:"ResultCode"`
		ResultDesc   string          `json:"ResultDesc"`
		ErrorCode    string          `json:"errorCode"`
		ErrorMessage string          `json:"errorMessage"`
	}
	status, err := g.post(ctx, "query", "/mpesa/stkpushquery/v1/query", payload, &out)
	if err != nil {
		return adapter.StatusResult{}, err
	}
	if out.ErrorCode == darajaStillProcessing {
		return adapter.StatusResult{Pending: true, ResultDesc: out.ErrorMessage}, nil
	}
	if status != http.StatusOK || out.ResponseCode != "0" {
		msg := firstNonEmpty(out.ErrorMessage, out.ResultDesc, http.StatusText(status))
		if status >= 500 {
			return adapter.StatusResult{}, fmt.Errorf("%w: stk query: %s", domain.ErrGatewayUnavailable, msg)
		}
		return adapter.StatusResult{}, fmt.Errorf("%w: stk query: %s", domain.ErrGatewayError, msg)
	}
	code, err := strconv.Atoi(strings.Trim(string(out.ResultCode), `" `))
	if err != nil {
		return adapter.StatusResult{}, fmt.Errorf("%w: stk query: bad ResultCode %s", domain.ErrGatewayError, out.ResultCode)
	}
	return adapter.StatusResult{ResultCode: code, ResultDesc: out.ResultDesc}, nil
}

// post sends an authenticated JSON request and decodes the body into out
// regardless of HTTP status, since Daraja reports errors in the body.
func (g *DarajaGateway) post(ctx context.Context, op, path string, payload any, out any) (int, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return 0, err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall(g.Name(), op, transportResult(err), time.Since(start))
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrGatewayUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		g.dropToken()
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.ObserveGatewayCall(g.Name(), op, "error", time.Since(start))
		return 0, fmt.Errorf("%w: %s: read body: %v", domain.ErrGatewayUnavailable, op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveGatewayCall(g.Name(), op, "error", time.Since(start))
		if resp.StatusCode >= 500 {
			return resp.StatusCode, fmt.Errorf("%w: %s: http %d", domain.ErrGatewayUnavailable, op, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("%w: %s: undecodable response (http %d)", domain.ErrGatewayError, op, resp.StatusCode)
	}
	result := "ok"
	if resp.StatusCode != http.StatusOK {
		result = "error"
	}
	metrics.ObserveGatewayCall(g.Name(), op, result, time.Since(start))
	g.log.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("daraja call")
	return resp.StatusCode, nil
}

func statusErr(op string, resp *http.Response) error {
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s: http %d", domain.ErrGatewayUnavailable, op, resp.StatusCode)
	}
	return fmt.Errorf("%w: %s: http %d", domain.ErrGatewayError, op, resp.StatusCode)
}

func transportResult(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	return "error"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Package apiclient はディーラーAPI（車両・ブランド・認証）のクライアントを提供する。
// すべての操作は1往復のリクエスト/レスポンスで、リトライもキャッシュも行わない。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/showroom/internal/model"
)

const (
	// PlaceholderCarImage は画像パスがない場合に表示する車両画像。
	PlaceholderCarImage = "assets/images/placeholder-car.jpg"
	// PlaceholderLogo はロゴURLがない場合に表示するブランドロゴ。
	PlaceholderLogo = "assets/images/placeholder-logo.png"

	userAgent       = "Showroom/1.0"
	maxResponseSize = 10 << 20
)

// Config はクライアントの接続設定。
type Config struct {
	BaseURL      string     // APIのベースURL（例: https://api.example.com/api）
	ImageBaseURL string     // 画像パスを解決するベースURL
	RateLimit    rate.Limit // 送信レート（req/sec）。0以下で無制限
	Burst        int
}

// Recorder はAPI呼び出しの計測を受け取るインターフェース。
type Recorder interface {
	RecordAPICall(resource, operation string, statusCode int, duration time.Duration)
}

// Client はディーラーAPIのクライアント。
// リソースごとの操作はCars・Brands・Authから呼び出す。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	baseURL      string
	imageBaseURL string
	limiter      *rate.Limiter
	recorder     Recorder

	Cars   *CarService
	Brands *BrandService
	Auth   *AuthService
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg Config) *Client {
	imageBase := cfg.ImageBaseURL
	if imageBase == "" {
		imageBase = cfg.BaseURL
	}

	c := &Client{
		httpClient:   httpClient,
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(imageBase, "/"),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	c.Cars = &CarService{client: c}
	c.Brands = &BrandService{client: c}
	c.Auth = &AuthService{client: c}
	return c
}

// SetRecorder はAPI呼び出しの計測先を設定する。
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// ImageURL は保存された画像パスを表示用URLに解決する。
// パスが空の場合はプレースホルダー画像を返す。
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return PlaceholderCarImage
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

type tokenContextKey struct{}

// WithToken はAPI呼び出しに付与するBearerトークンをコンテキストに格納する。
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext はコンテキストに格納されたBearerトークンを返す。
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// envelope はAPIレスポンスの共通ラッパー。
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// call は1回のAPI呼び出しを表す。
type call struct {
	resource    string
	operation   string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonCall はJSONボディを持つcallを組み立てる。
func jsonCall(resource, operation, method, path string, payload any) (call, error) {
	c := call{resource: resource, operation: operation, method: method, path: path}
	if payload == nil {
		return c, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return c, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}
	c.body = bytes.NewReader(b)
	c.contentType = "application/json"
	return c, nil
}

// do はAPIを呼び出し、エンベロープのdata部をoutにデコードする。
// outがnilの場合はdata部を読み捨てる。
// 失敗はすべて*Errorとして返す。
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Err: err}
		}
	}

	reqURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		reqURL += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, reqURL, cl.body)
	if err != nil {
		return &Error{Err: fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(cl, 0, start)
		c.logger.Error("API call failed",
			slog.String("resource", cl.resource),
			slog.String("operation", cl.operation),
			slog.String("error", err.Error()),
		)
		return &Error{Err: err}
	}
	defer resp.Body.Close()
	c.record(cl, resp.StatusCode, start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)}
	}

	var env envelope
	decodeErr := error(nil)
	if len(bytes.TrimSpace(body)) > 0 {
		decodeErr = json.Unmarshal(body, &env)
	} else {
		env.Success = true
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("API returned error status",
			slog.String("resource", cl.resource),
			slog.String("operation", cl.operation),
			slog.Int("http_status", resp.StatusCode),
		)
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", decodeErr)}
	}
	if !env.Success {
		return &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("dataのデコードに失敗しました: %w", err)}
	}
	return nil
}

func (c *Client) record(cl call, status int, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordAPICall(cl.resource, cl.operation, status, time.Since(start))
}

// flexibleList はページ形式・配列形式のどちらのdata部からも一覧を取り出す。
type flexibleList[T any] struct {
	Items []T
	Page  *model.Page[T]
}

// UnmarshalJSON は先頭の文字で配列かページオブジェクトかを判定する。
func (l *flexibleList[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.Items)
	}
	var p model.Page[T]
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	l.Page = &p
	l.Items = p.Data
	return nil
}

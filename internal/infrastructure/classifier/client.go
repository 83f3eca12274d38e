package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

const (
	// DefaultMaxImageBytes ограничивает размер изображения до кодирования.
	DefaultMaxImageBytes = 10 << 20

	// maxResponseBytes ограничивает чтение ответа классификатора.
	maxResponseBytes = 4 << 20

	apiKeyParam = "api_key"
)

// prediction описывает элемент ответа классификатора.
type prediction struct {
	Class      string   `json:"class"`
	Confidence *float64 `json:"confidence"`
}

// Client отправляет снимки во внешний сервис детекции объектов.
type Client struct {
	endpoint      string
	apiKey        string
	maxImageBytes int
	http          *http.Client
	logger        *slog.Logger
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient задаёт HTTP-клиент (таймауты, транспорт).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxImageBytes задаёт предел размера изображения.
func WithMaxImageBytes(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxImageBytes = n
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New создаёт клиента для endpoint; ключ передаётся параметром запроса api_key.
func New(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:      endpoint,
		apiKey:        apiKey,
		maxImageBytes: DefaultMaxImageBytes,
		http:          &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Classify кодирует изображение в base64, отправляет его и разбирает предсказания.
func (c *Client) Classify(ctx context.Context, image []byte) ([]entity.Detection, error) {
	if len(image) == 0 {
		return nil, &entity.ClassifierError{Kind: entity.KindInvalidImage, Err: entity.ErrEmptyImage}
	}
	if len(image) > c.maxImageBytes {
		return nil, &entity.ClassifierError{
			Kind: entity.KindInvalidImage,
			Err:  fmt.Errorf("%w: %d > %d bytes", entity.ErrImageTooLarge, len(image), c.maxImageBytes),
		}
	}

	target, err := c.requestURL()
	if err != nil {
		return nil, &entity.ClassifierError{Kind: entity.KindNetwork, Err: err}
	}

	body := base64.StdEncoding.EncodeToString(image)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(body))
	if err != nil {
		return nil, &entity.ClassifierError{Kind: entity.KindNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("sending image to classifier", "endpoint", c.endpoint, "bytes", len(image))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &entity.ClassifierError{Kind: entity.KindNetwork, Err: fmt.Errorf("send request: %w", redact(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &entity.ClassifierError{
			Kind: entity.KindNetwork,
			Err:  fmt.Errorf("classifier failed with status: %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &entity.ClassifierError{
			Kind: entity.KindInvalidResponse,
			Err:  fmt.Errorf("classifier rejected request with status: %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &entity.ClassifierError{Kind: entity.KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(data) > maxResponseBytes {
		return nil, &entity.ClassifierError{Kind: entity.KindInvalidResponse, Err: errors.New("response is too large")}
	}

	detections, err := parsePredictions(data)
	if err != nil {
		return nil, &entity.ClassifierError{Kind: entity.KindInvalidResponse, Err: err}
	}

	c.logger.Debug("classifier responded", "detections", len(detections))
	return detections, nil
}

func (c *Client) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set(apiKeyParam, c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parsePredictions принимает массив предсказаний или объект с полем predictions.
func parsePredictions(data []byte) ([]entity.Detection, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty response body")
	}

	var preds []prediction
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &preds); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	case '{':
		var wrapped struct {
			Predictions *[]prediction `json:"predictions"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if wrapped.Predictions == nil {
			return nil, errors.New("response has no predictions")
		}
		preds = *wrapped.Predictions
	default:
		return nil, errors.New("response is not JSON")
	}

	out := make([]entity.Detection, 0, len(preds))
	for i, p := range preds {
		if p.Confidence == nil {
			return nil, fmt.Errorf("prediction %d has no confidence", i)
		}
		conf := *p.Confidence
		if math.IsNaN(conf) || conf < 0 || conf > 1 {
			return nil, fmt.Errorf("prediction %d confidence %v is out of range", i, conf)
		}
		out = append(out, entity.Detection{Label: p.Class, Confidence: conf})
	}
	return out, nil
}

// redact убирает ключ из текста ошибки транспорта (url.Error содержит полный адрес).
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	u, perr := url.Parse(uerr.URL)
	if perr != nil {
		return err
	}
	q := u.Query()
	if q.Has(apiKeyParam) {
		q.Set(apiKeyParam, "***")
		u.RawQuery = q.Encode()
	}
	return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
}

var _ port.Classifier = (*Client)(nil)

package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/dialogue-bridge/internal/logger"
	"github.com/senyabanana/dialogue-bridge/internal/models"

	"github.com/google/uuid"
)

// RegistryOptions - параметры подключения к API реестра.
type RegistryOptions struct {
	BaseURL   string // {API_HOST}/api/{API_VERSION}
	Token     string
	UserAgent string
	Timeout   time.Duration
	Retry     RetryPolicy
}

// verdict - решение о судьбе ответа реестра.
type verdict int

const (
	verdictTransient verdict = iota // ошибка: пауза и повтор
	verdictAgain                    // 412: повтор без паузы
	verdictDone                     // успех
	verdictStop                     // окончательный отказ, повторять нельзя
)

// call описывает один логический запрос, который повторяется до результата.
type call struct {
	method   string
	path     string
	payload  any
	failMsg  string
	classify func(status int) verdict
	// decode разбирает тело успешного ответа; ошибка разбора считается временной.
	decode func(body []byte) error
}

// registryClient - общий транспорт с политикой повторов.
type registryClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	retry      RetryPolicy
	log        *slog.Logger
}

func newRegistryClient(opts RegistryOptions, log *slog.Logger) *registryClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &registryClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		retry:      opts.Retry,
		log:        log,
	}
}

// execute повторяет запрос, пока classify не вернет verdictDone или verdictStop.
// Возвращает код ответа, на котором остановились.
func (c *registryClient) execute(ctx context.Context, cl call) (int, []byte, error) {
	log := logger.FromContext(ctx, c.log)
	for attempt := 1; ; attempt++ {
		status, body, err := c.send(ctx, cl.method, cl.path, cl.payload)
		if err == nil {
			switch cl.classify(status) {
			case verdictStop:
				return status, body, nil
			case verdictDone:
				if cl.decode == nil {
					return status, body, nil
				}
				if err = cl.decode(body); err == nil {
					return status, body, nil
				}
				err = fmt.Errorf("decode response: %w", err)
			case verdictAgain:
				log.Debug("precondition failed, repeating request",
					logger.Journal(models.JournalException), "method", cl.method, "path", cl.path)
				if c.retry.exhausted(attempt) {
					return status, body, fmt.Errorf("%s %s: %w", cl.method, cl.path, ErrRetriesExhausted)
				}
				continue
			default:
				err = models.NewRegistryError(status, body)
			}
		}
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}

		log.Warn(cl.failMsg, logger.Journal(models.JournalException), "attempt", attempt, "error", err)
		if c.retry.exhausted(attempt) {
			return 0, nil, fmt.Errorf("%s %s: %w: %v", cl.method, cl.path, ErrRetriesExhausted, err)
		}
		if werr := c.retry.wait(ctx); werr != nil {
			return 0, nil, werr
		}
	}
}

// send выполняет один HTTP-запрос. Тело оборачивается в {"data": ...}.
func (c *registryClient) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(envelope{Data: payload})
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Client-Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// envelope - обертка {"data": ...}, в которой реестр принимает и отдает документы.
type envelope struct {
	Data any `json:"data"`
}

// decodeData разбирает {"data": ...} в out.
func decodeData(body []byte, out any) error {
	if err := json.Unmarshal(body, &envelope{Data: out}); err != nil {
		return err
	}
	return nil
}

// accept возвращает classify, который считает успехом только код ok,
// а для перечисленных кодов применяет заданные решения.
func accept(ok int, special map[int]verdict) func(int) verdict {
	return func(status int) verdict {
		if status == ok {
			return verdictDone
		}
		if v, found := special[status]; found {
			return v
		}
		return verdictTransient
	}
}

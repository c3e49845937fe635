package selectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxOverrideSize     = 1 << 20
)

// Provider держит активную таблицу фраз. Создается явно и передается в workflow
// по указателю; глобального экземпляра нет.
type Provider struct {
	mu     sync.RWMutex
	active Config
	source string
	client *http.Client
	log    *zap.Logger
}

type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

func NewProvider(log *zap.Logger, opts ...Option) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provider{
		active: Default(),
		source: "default",
		client: &http.Client{Timeout: defaultFetchTimeout},
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init скачивает удаленный override и накладывает его на текущую таблицу.
// Любая ошибка (сеть, статус, JSON, чужая схема) только логируется:
// сломанный удаленный конфиг никогда не останавливает автоматизацию.
func (p *Provider) Init(ctx context.Context, url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}

	override, err := p.fetch(ctx, url)
	if err != nil {
		p.log.Warn("Удаленный конфиг селекторов недоступен, используем текущую таблицу",
			zap.String("url", url), zap.Error(err))
		return
	}

	p.apply(override, url)
}

func (p *Provider) fetch(ctx context.Context, url string) (Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Config{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Config{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Config{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOverrideSize))
	if err != nil {
		return Config{}, fmt.Errorf("read body: %w", err)
	}

	var override Config
	if err := json.Unmarshal(body, &override); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if override.IsEmpty() {
		return Config{}, fmt.Errorf("override не содержит ни одного известного списка")
	}
	return override, nil
}

// LoadFile накладывает локальный override из YAML или JSON (JSON - подмножество YAML).
func (p *Provider) LoadFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("чтение файла селекторов: %w", err)
	}

	var override Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&override); err != nil {
		return fmt.Errorf("разбор файла селекторов %s: %w", path, err)
	}
	if override.IsEmpty() {
		return fmt.Errorf("файл селекторов %s не содержит ни одного известного списка", path)
	}

	p.apply(override, path)
	return nil
}

func (p *Provider) apply(override Config, source string) {
	p.mu.Lock()
	merged := p.active.Merge(override)
	if err := merged.Validate(); err != nil {
		p.mu.Unlock()
		p.log.Warn("Override селекторов отклонен", zap.String("source", source), zap.Error(err))
		return
	}
	p.active = merged
	p.source = source
	p.mu.Unlock()

	p.log.Info("Таблица селекторов обновлена", zap.String("source", source))
}

// Selectors возвращает неизменяемый снимок активной таблицы.
func (p *Provider) Selectors() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active.Clone()
}

// Source - откуда взята активная таблица: default, URL или путь к файлу.
func (p *Provider) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

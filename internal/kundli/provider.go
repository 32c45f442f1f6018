package kundli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
)

// ProviderConfig настройки внешнего сервиса расчёта.
type ProviderConfig struct {
	URL    string
	Key    string
	Secret string
	Name   string
}

// Enabled сообщает, задан ли внешний сервис.
func (c ProviderConfig) Enabled() bool {
	return c.URL != "" && c.Key != ""
}

// ExternalProvider вызывает внешний API гороскопов и сохраняет его ответ как есть в Raw.
type ExternalProvider struct {
	cfg    ProviderConfig
	client *http.Client
	now    func() time.Time
}

// NewExternalProvider создаёт клиента. client может быть nil.
func NewExternalProvider(cfg ProviderConfig, client *http.Client) *ExternalProvider {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Name == "" {
		cfg.Name = "external"
	}
	return &ExternalProvider{cfg: cfg, client: client, now: time.Now}
}

// Calculate отправляет входные данные провайдеру.
func (p *ExternalProvider) Calculate(ctx context.Context, in Input, ayanamsa string) (*Result, error) {
	payload := struct {
		Input
		Ayanamsa string `json:"ayanamsa"`
	}{Input: in, Ayanamsa: ayanamsa}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("kundli provider: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("kundli provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.cfg.Key)
	req.Header.Set("X-API-SECRET", p.cfg.Secret)
	req.Header.Set("Authorization", "Bearer "+p.cfg.Key)
	req.Header.Set("X-ENGINE", p.cfg.Name)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kundli provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("kundli provider: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("kundli provider: status %d", resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("kundli provider: response is not JSON")
	}
	if trimmed := bytes.TrimSpace(raw); bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("kundli provider: empty response")
	}

	return &Result{
		Input: in,
		Metadata: Metadata{
			Engine:      EngineExternal,
			Ayanamsa:    ayanamsa,
			GeneratedAt: formatGeneratedAt(p.now()),
		},
		Planets:   []PlanetPosition{},
		Houses:    []House{},
		Ascendant: unknown,
		Nakshatra: unknown,
		Rashi:     unknown,
		SunSign:   unknown,
		MoonSign:  unknown,
		Raw:       json.RawMessage(bytes.TrimSpace(raw)),
	}, nil
}

// Calculator источник расчёта.
type Calculator interface {
	Calculate(ctx context.Context, in Input, ayanamsa string) (*Result, error)
}

// Generator пробует внешний сервис и при любой его ошибке считает локально.
type Generator struct {
	external Calculator
	local    Calculator
}

// NewGenerator создаёт генератор. external может быть nil.
func NewGenerator(external, local Calculator) *Generator {
	return &Generator{external: external, local: local}
}

func (g *Generator) Generate(ctx context.Context, in Input, ayanamsa string) (*Result, error) {
	if ayanamsa == "" {
		ayanamsa = DefaultAyanamsa
	}
	if g.external != nil {
		result, err := g.external.Calculate(ctx, in, ayanamsa)
		if err == nil {
			return result, nil
		}
		logger.Entry(logrus.Fields{"error": err.Error()}).Warn("Kundli provider failed, using local engine")
	}
	return g.local.Calculate(ctx, in, ayanamsa)
}

package generation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPromptEmpty は空のプロンプトに対して返されるエラーです。
	ErrPromptEmpty = errors.New("generation: prompt is empty")
	// ErrPromptTooLong は最大長を超えるプロンプトに対して返されるエラーです。
	// どのtierも実行される前に検査されます。
	ErrPromptTooLong = errors.New("generation: prompt exceeds maximum length")
)

// MaxPromptLength はプロンプトの最大文字数です。
const MaxPromptLength = 100

// Config はOrchestratorの時間予算と閾値です。
type Config struct {
	HardDeadline      time.Duration // generate全体の上限
	RemoteBudget      time.Duration // 外部サービスtierの予算
	TemplateThreshold float64       // テンプレート一致とみなす確信度
}

func DefaultConfig() Config {
	return Config{
		HardDeadline:      3000 * time.Millisecond,
		RemoteBudget:      2500 * time.Millisecond,
		TemplateThreshold: 0.85,
	}
}

// Request は1回の生成要求です。Fingerprintは現在の物理パラメータの要約で、
// キャッシュキーの一部になります。
type Request struct {
	Prompt      string
	Fingerprint string
}

// Stats は生成の統計情報です。
type Stats struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	TemplateHits  int64   `json:"template_hits"`
	RemoteHits    int64   `json:"remote_hits"`
	FallbackHits  int64   `json:"fallback_hits"`
	Rejected      int64   `json:"rejected"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// Orchestrator はプロンプトを期限内に必ずアイテムへ解決します。
// tierは cache → template → remote → fallback の順で、最初の成功で確定します。
type Orchestrator struct {
	service   ContentService
	moderator Moderator
	config    Config
	cache     *cache

	mu    sync.Mutex
	stats Stats
}

func NewOrchestrator(service ContentService, moderator Moderator, config Config) *Orchestrator {
	return &Orchestrator{
		service:   service,
		moderator: moderator,
		config:    config,
		cache:     newCache(),
	}
}

// Generate はプロンプトからアイテムを生成します。HardDeadline内に必ず返り、
// 失敗はプロンプト検査エラーのみです。tier内部の失敗は次のtierへ継承されます。
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Item, error) {
	start := time.Now()
	prompt := trimPrompt(req.Prompt)
	if prompt == "" {
		o.recordRejected()
		return nil, ErrPromptEmpty
	}
	if len(prompt) > MaxPromptLength {
		o.recordRejected()
		return nil, ErrPromptTooLong
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.HardDeadline)
	defer cancel()

	item := o.resolve(ctx, prompt, req.Fingerprint)
	o.recordResolved(item.Provenance, time.Since(start))
	return item, nil
}

func (o *Orchestrator) resolve(ctx context.Context, prompt, fingerprint string) *Item {
	// モデレーションは全てのtierより先。Rejectされた場合は元テキストを
	// 破棄し、差し替えプロンプトでfallback tierのみを使う。
	decision, err := o.moderator.Check(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "moderation unavailable, treating as reject", "err", err)
		decision = DecisionReject
	}
	if decision == DecisionReject {
		return o.fallbackItem("default")
	}

	key := cacheKey(prompt, fingerprint)
	if item, ok := o.cache.Get(key); ok {
		return item
	}

	if tpl, confidence := MatchTemplate(prompt); tpl != nil && confidence >= o.config.TemplateThreshold {
		item := o.finishItem(prompt, tpl.Category, JitterProps(prompt, tpl.Props), placeholderAsset(tpl.Category), ProvenanceTemplate)
		o.cache.Put(key, item)
		return item
	}

	if item := o.remoteItem(ctx, prompt); item != nil {
		o.cache.Put(key, item)
		return item
	}

	return o.fallbackItem(prompt)
}

// remoteItem は外部サービスをRemoteBudget内で呼びます。時間切れ・失敗はnilで、
// 呼び出しはキャンセル可能であり遅延した結果は観測されずに破棄されます。
func (o *Orchestrator) remoteItem(ctx context.Context, prompt string) *Item {
	ctx, cancel := context.WithTimeout(ctx, o.config.RemoteBudget)
	defer cancel()

	type result struct {
		content *GeneratedContent
		err     error
	}
	resultCh := make(chan result, 1)
	go func() {
		content, err := o.service.Generate(ctx, prompt, StyleConstraints{SpriteSize: 64})
		resultCh <- result{content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.WarnContext(ctx, "remote generation timed out", "prompt", prompt)
		return nil
	case res := <-resultCh:
		if res.err != nil {
			slog.WarnContext(ctx, "remote generation failed", "err", res.err)
			return nil
		}
		if res.content == nil {
			return nil
		}
		props := Properties{
			Damage:        res.content.Damage,
			Speed:         res.content.Speed,
			Range:         res.content.Range,
			Ammo:          res.content.Ammo,
			CooldownMs:    res.content.CooldownMs,
			SpecialEffect: res.content.SpecialEffect,
		}
		return o.finishItem(prompt, ParseCategory(res.content.Category), props, res.content.AssetRef, ProvenanceRemote)
	}
}

func (o *Orchestrator) fallbackItem(prompt string) *Item {
	category, props := FallbackItemProps(prompt)
	return o.finishItem(prompt, category, props, placeholderAsset(category), ProvenanceFallback)
}

// finishItem は全tier共通の仕上げです。バランス評価を必ず通し、
// 閾値を超える強さはここで矯正されます。
func (o *Orchestrator) finishItem(prompt string, category Category, props Properties, assetRef string, provenance Provenance) *Item {
	props, score := Rebalance(props)
	return &Item{
		ID:           uuid.NewString(),
		Name:         DeriveName(prompt),
		Prompt:       prompt,
		Category:     category,
		Props:        props,
		BalanceScore: score,
		Provenance:   provenance,
		AssetRef:     assetRef,
	}
}

// Stats は現在の統計のコピーを返します。
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Orchestrator) recordRejected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.TotalRequests++
	o.stats.Rejected++
}

func (o *Orchestrator) recordResolved(provenance Provenance, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.TotalRequests++
	switch provenance {
	case ProvenanceCache:
		o.stats.CacheHits++
	case ProvenanceTemplate:
		o.stats.TemplateHits++
	case ProvenanceRemote:
		o.stats.RemoteHits++
	case ProvenanceFallback:
		o.stats.FallbackHits++
	}
	resolved := o.stats.TotalRequests - o.stats.Rejected
	ms := float64(elapsed.Milliseconds())
	o.stats.AvgLatencyMs += (ms - o.stats.AvgLatencyMs) / float64(resolved)
}

func trimPrompt(prompt string) string {
	// 先頭・末尾の空白のみ除去する。中身の正規化はcacheKeyが担う。
	return strings.TrimSpace(prompt)
}

package textcheck

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/scribe/internal/cache"
	"github.com/dshills/scribe/internal/check"
	"github.com/dshills/scribe/internal/chunk"
	"github.com/dshills/scribe/internal/providers"
	"github.com/dshills/scribe/internal/redact"
)

// Completer sends one chat completion. *providers.Client implements it.
type Completer interface {
	ChatCompletionWithMetadata(ctx context.Context, req providers.ChatCompletionRequest) (providers.WithMetadata, error)
	ProviderName() string
}

// RequestMetadata describes the completion behind a result.
type RequestMetadata struct {
	Request  providers.ChatCompletionRequest
	Response providers.ChatCompletionResponse
	Model    string
	Provider string
	Duration time.Duration
	Cached   bool
	// Chunks is the number of completions a chunked check made; zero for a
	// single completion.
	Chunks int
}

// Outcome is a check result plus, when a completion was parsed, its metadata.
type Outcome struct {
	Result   *check.Result
	Metadata *RequestMetadata
}

// Checker runs LLM quality checks and normalizes them to check results.
type Checker struct {
	llm         Completer
	logger      *zap.Logger
	cache       *cache.Cache
	chunker     *chunk.Chunker
	concurrency int
	redact      bool
	redactPaths []string
	now         func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithCache reuses completions for identical provider, model, prompt, and
// content.
func WithCache(cc *cache.Cache) Option {
	return func(c *Checker) { c.cache = cc }
}

// WithChunker makes CheckDocument split long content, running at most
// concurrency completions at once.
func WithChunker(ch *chunk.Chunker, concurrency int) Option {
	return func(c *Checker) {
		c.chunker = ch
		c.concurrency = concurrency
	}
}

// WithRedaction masks secrets before content is sent. Content of files
// whose names match paths is masked entirely.
func WithRedaction(paths []string) Option {
	return func(c *Checker) {
		c.redact = true
		c.redactPaths = paths
	}
}

// New creates a Checker backed by llm.
func New(llm Completer, opts ...Option) *Checker {
	c := &Checker{
		llm:         llm,
		logger:      zap.NewNop(),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderName reports the backing provider.
func (c *Checker) ProviderName() string { return c.llm.ProviderName() }

// CheckText analyzes content in one completion. It never fails: when the
// completion errors or carries no usable JSON, the fallback result is
// returned with nil metadata.
func (c *Checker) CheckText(ctx context.Context, content, model, systemPrompt string) Outcome {
	return c.checkText(ctx, content, "", model, systemPrompt)
}

func (c *Checker) checkText(ctx context.Context, content, fileName, model, systemPrompt string) Outcome {
	resp, md, err := c.analyze(ctx, c.prepare(content, fileName), model, systemPrompt)
	if err != nil {
		c.logger.Warn("llm check fell back to default result",
			zap.String("provider", c.llm.ProviderName()),
			zap.String("model", c.model(model)),
			zap.Error(err),
		)
		return Outcome{Result: fallbackResult(content, c.now())}
	}
	return Outcome{Result: toResult(resp, content, c.now()), Metadata: md}
}

// CheckDocument is CheckText for content of any length. Content longer than
// the chunk size is analyzed per chunk; issues are moved to whole-document
// offsets and merged, the score is the length-weighted mean of chunk scores,
// and counts are recomputed locally.
func (c *Checker) CheckDocument(ctx context.Context, content, fileName, model, systemPrompt string) Outcome {
	if c.chunker == nil || !c.chunker.NeedsChunking(content) {
		return c.checkText(ctx, content, fileName, model, systemPrompt)
	}

	start := c.now()
	sent := c.prepare(content, fileName)
	chunks := c.chunker.Chunk(sent)

	type part struct {
		resp *llmResponse
		md   *RequestMetadata
	}
	parts, _ := chunk.RunChunked(ctx, chunks, c.concurrency, func(ctx context.Context, ch chunk.Chunk) (part, error) {
		resp, md, err := c.analyze(ctx, ch.Text, model, systemPrompt)
		if err != nil {
			c.logger.Warn("llm check of chunk fell back to default result",
				zap.String("chunk", ch.ID),
				zap.Int("start", ch.StartOffset),
				zap.Error(err),
			)
			return part{}, nil
		}
		return part{resp: resp, md: md}, nil
	})

	runes := []rune(content)
	env := hashString(content)
	var (
		groups       [][]check.Issue
		weighted     float64
		total        int
		metricSums   = map[string]float64{}
		metricCounts = map[string]int{}
		succeeded    int
		cached       = true
	)
	for i, p := range parts {
		ch := chunks[i]
		size := ch.Len()
		total += size
		if p.resp == nil {
			weighted += fallbackScore * float64(size)
			continue
		}
		succeeded++
		cached = cached && p.md.Cached
		weighted += float64(clampScore(p.resp.OverallScore)) * float64(size)
		for _, m := range projectMetrics(p.resp.GoalScores) {
			metricSums[m.ID] += m.Score
			metricCounts[m.ID]++
		}

		chunkRunes := []rune(ch.Text)
		issues := make([]check.Issue, len(p.resp.Issues))
		for j, li := range p.resp.Issues {
			issues[j] = buildIssue(li, j, chunkRunes, env)
		}
		groups = append(groups, chunk.AdjustOffsets(issues, ch))
	}

	if succeeded == 0 {
		return Outcome{Result: fallbackResult(content, c.now())}
	}

	merged := chunk.MergeResults(groups...)
	for i := range merged {
		setIndex(&merged[i], i)
		for j, m := range merged[i].PositionalInformation.Matches {
			if m.OriginalEnd > len(runes) {
				merged[i].PositionalInformation.Matches[j].OriginalEnd = len(runes)
				merged[i].PositionalInformation.Matches[j].ExtractedEnd = len(runes)
			}
		}
	}

	metrics := make([]check.Metric, 0, len(metricSums))
	for id, sum := range metricSums {
		metrics = append(metrics, check.Metric{ID: id, Score: math.Round(sum / float64(metricCounts[id]))})
	}
	metrics = sortMetrics(metrics)

	result := &check.Result{
		ID:      checkID(c.now()),
		Score:   clampScore(weighted / float64(max(total, 1))),
		Status:  string(check.StatusCompleted),
		Goals:   goalResults(merged),
		Issues:  merged,
		Metrics: metrics,
		Counts: &check.Counts{
			Sentences:    countSentences(content),
			Words:        countWords(content),
			Issues:       len(merged),
			ScoredIssues: scoredIssues(merged),
		},
	}
	return Outcome{
		Result: result,
		Metadata: &RequestMetadata{
			Model:    c.model(model),
			Provider: c.llm.ProviderName(),
			Duration: c.now().Sub(start),
			Cached:   cached,
			Chunks:   len(chunks),
		},
	}
}

// prepare applies redaction to content about to leave the process.
func (c *Checker) prepare(content, fileName string) string {
	if !c.redact {
		return content
	}
	if n := redact.Count(content); n > 0 {
		c.logger.Debug("redacting secrets", zap.Int("matches", n))
	}
	return redact.Content(content, fileName, c.redactPaths)
}

func (c *Checker) model(model string) string {
	if model == "" {
		return providers.DefaultModel(c.llm.ProviderName())
	}
	return model
}

// analyze runs one completion over text, consulting the cache first.
func (c *Checker) analyze(ctx context.Context, text, model, systemPrompt string) (*llmResponse, *RequestMetadata, error) {
	model = c.model(model)
	if systemPrompt == "" {
		systemPrompt = SystemPrompt
	}
	provider := c.llm.ProviderName()
	req := providers.ChatCompletionRequest{
		Model: model,
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPromptPrefix + text},
		},
		Temperature: providers.Float(0),
		MaxTokens:   maxTokens,
	}

	var key string
	if c.cache != nil && c.cache.Enabled() {
		key = cache.BuildKey(provider, model, systemPrompt, text)
		if cached, ok := c.cache.Get(key); ok {
			if resp, err := parseResponse(cached); err == nil {
				c.logger.Debug("llm check cache hit", zap.String("model", model))
				return resp, &RequestMetadata{
					Request:  req,
					Response: providers.ChatCompletionResponse{Model: model, Choices: []providers.Choice{{Message: providers.Message{Role: "assistant", Content: cached}}}},
					Model:    model,
					Provider: provider,
					Cached:   true,
				}, nil
			}
		}
	}

	md, err := c.llm.ChatCompletionWithMetadata(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	text = md.Response.Content()
	resp, err := parseResponse(text)
	if err != nil {
		return nil, nil, err
	}
	if key != "" {
		if err := c.cache.Put(key, text); err != nil {
			c.logger.Debug("caching llm response failed", zap.Error(err))
		}
	}
	return resp, &RequestMetadata{
		Request:  md.Request,
		Response: md.Response,
		Model:    model,
		Provider: provider,
		Duration: md.Duration,
	}, nil
}

package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
	"github.com/jlin-dev/carbonlens/internal/infra/llm/chatgpt"
	apperrors "github.com/jlin-dev/carbonlens/pkg/errors"
)

const defaultCacheTTL = 24 * time.Hour

// Service exposes the cached recommendation flow.
type Service interface {
	Recommendations(ctx context.Context, req Request) (Response, error)
	Save(ctx context.Context, tenant, id string) error
	MarkImplemented(ctx context.Context, tenant, id string) error
	Invalidate(ctx context.Context, tenant string) error
}

// ProfileSource condenses a tenant's emissions picture for prompting.
type ProfileSource interface {
	Profile(ctx context.Context, tenant string) (analytics.EmissionsProfile, error)
}

// ChatClient is the LLM surface the generator depends on.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

type service struct {
	cfg      Config
	profiles ProfileSource
	client   ChatClient
	store    Store
	guard    *generationGuard
	encoder  *tiktoken.Tiktoken
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires up the recommendation domain.
func NewService(cfg Config, profiles ProfileSource, client ChatClient, store Store, logger *slog.Logger) Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	encoder, err := tiktoken.EncodingForModel(cfg.Model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warn("tiktoken unavailable, using rough token estimates", "error", err)
			encoder = nil
		}
	}
	return &service{
		cfg:      cfg,
		profiles: profiles,
		client:   client,
		store:    store,
		guard:    newGenerationGuard(),
		encoder:  encoder,
		logger:   logger.With("component", "recommend.service"),
		now:      time.Now,
	}
}

// Recommendations returns the cached entry when it is younger than the TTL,
// otherwise regenerates. Generation is the expensive path the cache gate
// exists for; a regeneration superseded by a newer one is discarded rather
// than written out of order.
func (s *service) Recommendations(ctx context.Context, req Request) (Response, error) {
	tenant := strings.TrimSpace(req.Tenant)
	if tenant == "" {
		return Response{}, apperrors.Wrap("invalid_input", "tenant cannot be empty", nil)
	}

	if !req.Refresh {
		entry, ok, err := s.store.Get(ctx, tenant)
		if err != nil {
			s.logger.Warn("recommendation cache read failed", "tenant", tenant, "error", err)
		} else if ok && s.fresh(entry) {
			return entryResponse(entry, "cache"), nil
		}
	}

	gen := s.guard.begin(tenant)

	entry, err := s.generate(ctx, tenant)
	if err != nil {
		return Response{}, err
	}

	if !s.guard.stillCurrent(tenant, gen) {
		s.logger.Info("discarding superseded recommendation generation", "tenant", tenant)
		return entryResponse(entry, "llm"), nil
	}
	if err := s.store.Put(ctx, tenant, entry, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("recommendation cache write failed", "tenant", tenant, "error", err)
	}
	return entryResponse(entry, "llm"), nil
}

// Save marks a recommendation as saved without refreshing the entry's age.
func (s *service) Save(ctx context.Context, tenant, id string) error {
	return s.mark(ctx, tenant, id, func(entry *Entry) {
		entry.SavedIDs = appendUnique(entry.SavedIDs, id)
	})
}

// MarkImplemented marks a recommendation as implemented.
func (s *service) MarkImplemented(ctx context.Context, tenant, id string) error {
	return s.mark(ctx, tenant, id, func(entry *Entry) {
		entry.ImplementedIDs = appendUnique(entry.ImplementedIDs, id)
	})
}

// Invalidate drops the tenant's entry unconditionally and supersedes any
// in-flight generation so it cannot resurrect stale data.
func (s *service) Invalidate(ctx context.Context, tenant string) error {
	s.guard.supersede(tenant)
	if err := s.store.Invalidate(ctx, tenant); err != nil {
		return apperrors.Wrap("recommendation_error", "cache invalidation failed", err)
	}
	return nil
}

func (s *service) mark(ctx context.Context, tenant, id string, apply func(*Entry)) error {
	entry, ok, err := s.store.Get(ctx, tenant)
	if err != nil {
		return apperrors.Wrap("recommendation_error", "cache read failed", err)
	}
	if !ok || !s.fresh(entry) {
		return apperrors.Wrap("not_found", "no current recommendations for tenant", nil)
	}
	if !hasRecommendation(entry, id) {
		return apperrors.Wrap("not_found", "unknown recommendation id", nil)
	}
	apply(&entry)

	remaining := s.cfg.CacheTTL - s.now().Sub(entry.WrittenAt)
	if remaining <= 0 {
		return apperrors.Wrap("not_found", "recommendations expired", nil)
	}
	if err := s.store.Put(ctx, tenant, entry, remaining); err != nil {
		return apperrors.Wrap("recommendation_error", "cache write failed", err)
	}
	return nil
}

func (s *service) fresh(entry Entry) bool {
	return s.now().Sub(entry.WrittenAt) < s.cfg.CacheTTL
}

func (s *service) generate(ctx context.Context, tenant string) (Entry, error) {
	profile, err := s.profiles.Profile(ctx, tenant)
	if err != nil {
		return Entry{}, apperrors.Wrap("upstream_unavailable", "failed to load emissions profile", err)
	}

	messages := []chatgpt.Message{
		{Role: "system", Content: s.buildSystemPrompt()},
		{Role: "user", Content: s.buildProfilePrompt(profile)},
	}

	completion, err := s.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Entry{}, apperrors.Wrap("recommendation_error", "chatgpt request failed", err)
	}
	if len(completion.Choices) == 0 {
		return Entry{}, apperrors.Wrap("recommendation_error", "chatgpt returned no choices", nil)
	}

	recs, err := parseRecommendations(completion.Choices[0].Message.Content)
	if err != nil {
		return Entry{}, apperrors.Wrap("recommendation_error", "chatgpt response malformed", err)
	}
	for i := range recs {
		if strings.TrimSpace(recs[i].ID) == "" {
			recs[i].ID = uuid.NewString()
		}
	}

	return Entry{
		Recommendations: recs,
		SavedIDs:        []string{},
		ImplementedIDs:  []string{},
		WrittenAt:       s.now(),
	}, nil
}

func (s *service) buildSystemPrompt() string {
	base := strings.TrimSpace(s.cfg.Prompt)
	if base == "" {
		base = "You are a corporate carbon reduction advisor."
	}
	enforcer := " Respond ONLY with a valid minified JSON array where each element has the shape {\"title\":string,\"description\":string,\"impact\":\"low\"|\"medium\"|\"high\",\"effort\":\"low\"|\"medium\"|\"high\",\"estimatedSavingKg\":number,\"targetCategory\":string}. Never return plain text or other fields."
	return base + enforcer
}

func (s *service) buildProfilePrompt(profile analytics.EmissionsProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Annual emissions: %.1f kg CO2e (scope1 %.1f%%, scope2 %.1f%%, scope3 %.1f%%).\n",
		profile.TotalKg,
		100*profile.Breakdown.Scope1.Percentage,
		100*profile.Breakdown.Scope2.Percentage,
		100*profile.Breakdown.Scope3.Percentage)
	b.WriteString("Top emission categories:\n")

	header := b.String()
	budget := s.cfg.MaxPromptTokens
	lines := make([]string, 0, len(profile.Categories))
	for _, cat := range profile.Categories {
		lines = append(lines, fmt.Sprintf("- %s: %.1f kg over %d activities (%.1f%%)",
			cat.Name, cat.EmissionsKg, cat.ActivityCount, 100*cat.Percentage))
	}

	prompt := header + strings.Join(lines, "\n")
	if budget <= 0 {
		return prompt
	}
	// Trim category lines until the prompt fits the token budget.
	for len(lines) > 1 && s.countTokens(prompt) > budget {
		lines = lines[:len(lines)-1]
		prompt = header + strings.Join(lines, "\n")
	}
	return prompt
}

func (s *service) countTokens(text string) int {
	if s.encoder == nil {
		return len(text) / 4
	}
	return len(s.encoder.Encode(text, nil, nil))
}

func parseRecommendations(raw string) ([]Recommendation, error) {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	sanitized = strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))

	var recs []Recommendation
	if err := json.Unmarshal([]byte(sanitized), &recs); err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, rec := range recs {
		if strings.TrimSpace(rec.Title) == "" {
			continue
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable recommendations in response")
	}
	return out, nil
}

func entryResponse(entry Entry, source string) Response {
	return Response{
		Recommendations: entry.Recommendations,
		SavedIDs:        entry.SavedIDs,
		ImplementedIDs:  entry.ImplementedIDs,
		GeneratedAt:     entry.WrittenAt,
		Source:          source,
	}
}

func hasRecommendation(entry Entry, id string) bool {
	for _, rec := range entry.Recommendations {
		if rec.ID == id {
			return true
		}
	}
	return false
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

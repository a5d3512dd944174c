// Package router maps inbound chat commands and free-text messages to the
// right domain agent and formats answers into chat replies. Every path,
// including failures, produces a user-visible reply.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/models"
	"github.com/povarna/corporate-assistant/internal/ratelimit"
	"github.com/povarna/corporate-assistant/internal/vectorstore"
)

// Agent is the router's view of one domain agent.
type Agent interface {
	Domain() models.Domain
	Welcome() string
	Help() string
	Answer(ctx context.Context, query models.Query) (models.Answer, error)
}

var domainEmoji = map[models.Domain]string{
	models.DomainFinance: "💰",
	models.DomainLegal:   "⚖️",
	models.DomainProject: "📊",
}

const (
	selectPrompt = "Please select an agent first using /start"

	startText = `👋 *Welcome!*

I am the corporate AI assistant with three specialized agents:

💰 *Finance* — budgets, payments, limits
⚖️ *Legal* — documents, contracts, regulations
📊 *Project* — tasks, deadlines, statuses

Select an agent to get started:`

	genericHelp = `📖 *How to use this bot*

/start — pick an agent
/finance — switch to the finance assistant
/legal — switch to the legal assistant
/project — switch to the project assistant
/back — return to agent selection
/help — show this help

Pick an agent, then ask your question in plain language.`
)

// Router holds the per-user agent selection and dispatches messages.
type Router struct {
	agents   map[models.Domain]Agent
	sessions SessionStore
	limiter  ratelimit.Limiter
	index    vectorstore.Index

	allowed map[string]bool
	admins  map[string]bool
}

// Options carries the optional collaborators and access lists.
type Options struct {
	Limiter ratelimit.Limiter
	Index   vectorstore.Index
	// AllowedUsers restricts access when non-empty.
	AllowedUsers []string
	AdminUsers   []string
}

// New builds a router over the given agents.
func New(agents []Agent, sessions SessionStore, opts Options) *Router {
	m := make(map[models.Domain]Agent, len(agents))
	for _, a := range agents {
		m[a.Domain()] = a
	}

	return &Router{
		agents:   m,
		sessions: sessions,
		limiter:  opts.Limiter,
		index:    opts.Index,
		allowed:  toSet(opts.AllowedUsers),
		admins:   toSet(opts.AdminUsers),
	}
}

func toSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Route handles one inbound message and always returns a reply.
func (r *Router) Route(ctx context.Context, userID, text string) models.ChatReply {
	if !r.authorized(userID) {
		log.Warn().Str("user_id", userID).Msg("Unauthorized access attempt")
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeUnauthorized, ""))}
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return r.command(ctx, userID, text)
	}
	return r.freeText(ctx, userID, text)
}

// SelectAgent handles an inline-keyboard selection; data is the domain name.
func (r *Router) SelectAgent(ctx context.Context, userID, data string) models.ChatReply {
	if !r.authorized(userID) {
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeUnauthorized, ""))}
	}
	return r.switchAgent(ctx, userID, data)
}

func (r *Router) command(ctx context.Context, userID, text string) models.ChatReply {
	name := strings.ToLower(strings.TrimPrefix(strings.Fields(text)[0], "/"))
	// Telegram appends @botname in group chats.
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}

	switch name {
	case "start":
		return models.ChatReply{Text: startText, SelectAgent: true}
	case "help":
		return r.help(ctx, userID)
	case "finance", "legal", "project":
		return r.switchAgent(ctx, userID, name)
	case "back":
		if err := r.sessions.Clear(ctx, userID); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to clear session")
		}
		return models.ChatReply{Text: "Select an agent to continue:", SelectAgent: true}
	case "stats":
		return r.stats(ctx, userID)
	default:
		return models.ChatReply{Text: "Unknown command. Use /help to see what I can do."}
	}
}

func (r *Router) help(ctx context.Context, userID string) models.ChatReply {
	if domain, ok, _ := r.sessions.Get(ctx, userID); ok {
		if a, found := r.agents[domain]; found && a.Help() != "" {
			return models.ChatReply{Text: a.Help()}
		}
	}
	return models.ChatReply{Text: genericHelp}
}

func (r *Router) switchAgent(ctx context.Context, userID, name string) models.ChatReply {
	domain, ok := models.ParseDomain(name)
	if !ok {
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeAgentNotFound, ""))}
	}

	a, found := r.agents[domain]
	if !found {
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeAgentNotFound, ""))}
	}

	if err := r.sessions.Set(ctx, userID, domain); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to store session")
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(err)}
	}

	log.Info().Str("user_id", userID).Str("agent", domain.String()).Msg("User switched agent")
	return models.ChatReply{Text: a.Welcome()}
}

func (r *Router) freeText(ctx context.Context, userID, text string) models.ChatReply {
	domain, selected, err := r.sessions.Get(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Session lookup failed")
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(err)}
	}
	if !selected {
		// Deliberate UX policy: never guess the agent.
		return models.ChatReply{Text: selectPrompt, SelectAgent: true}
	}

	a, found := r.agents[domain]
	if !found {
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeAgentNotFound, ""))}
	}

	if r.limiter != nil {
		allowed, err := r.limiter.Allow(ctx, userID)
		if err != nil {
			// Fail open: a broken limiter must not take the bot down.
			log.Warn().Err(err).Str("user_id", userID).Msg("Rate limiter unavailable, allowing request")
		} else if !allowed {
			return models.ChatReply{Text: "❌ " + apperr.UserMessage(apperr.New(apperr.CodeRateLimited, ""))}
		}
	}

	query := models.Query{
		ID:        uuid.NewString(),
		Text:      text,
		Domain:    domain,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	answer, err := a.Answer(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query_id", query.ID).Str("user_id", userID).Str("agent", domain.String()).Msg("Agent failed to answer")
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(err)}
	}
	log.Info().
		Str("query_id", query.ID).
		Str("agent", domain.String()).
		Float64("confidence", answer.Confidence).
		Int64("latency_ms", answer.LatencyMS).
		Int("sources", len(answer.Sources)).
		Msg("Answered query")

	return models.ChatReply{Text: formatAnswer(answer)}
}

func formatAnswer(answer models.Answer) string {
	if len(answer.Sources) == 0 {
		return answer.Text
	}
	return fmt.Sprintf("%s\n\n📚 Sources used: %d", answer.Text, len(answer.Sources))
}

func (r *Router) stats(ctx context.Context, userID string) models.ChatReply {
	if !r.admins[userID] {
		return models.ChatReply{Text: "❌ This command is available to administrators only."}
	}
	if r.index == nil {
		return models.ChatReply{Text: "❌ Index statistics are not available."}
	}

	stats, err := r.index.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect index stats")
		return models.ChatReply{Text: "❌ " + apperr.UserMessage(err)}
	}

	var sb strings.Builder
	sb.WriteString("📊 *Agent statistics*\n\n")
	for _, d := range models.Domains {
		fmt.Fprintf(&sb, "%s *%s*\n└ Documents: %d\n\n",
			domainEmoji[d], strings.ToUpper(d.String()), stats.Partitions[d])
	}
	fmt.Fprintf(&sb, "Total chunks: %d", stats.TotalChunks)
	return models.ChatReply{Text: sb.String()}
}

func (r *Router) authorized(userID string) bool {
	if r.allowed == nil {
		return true
	}
	return r.allowed[userID]
}

// IsAdmin reports whether the user may run admin commands.
func (r *Router) IsAdmin(userID string) bool {
	return r.admins[userID]
}

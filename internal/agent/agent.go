// Package agent binds a domain partition, a persona and domain guardrails
// around the retriever/generator pair. The three domain agents are
// instances of one parameterized type, not separate implementations.
package agent

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/povarna/corporate-assistant/internal/apperr"
	"github.com/povarna/corporate-assistant/internal/models"
)

// Searcher is the retriever contract the agent depends on.
type Searcher interface {
	Search(ctx context.Context, query models.Query, k int) (models.RetrievalResult, error)
}

// Generator is the completion contract the agent depends on.
type Generator interface {
	Complete(ctx context.Context, query models.Query, ctxResult models.RetrievalResult, persona string, deadline time.Duration) (models.Answer, error)
}

// RerankFunc reorders the retrieval result before prompt assembly. Used by
// the project agent to prefer recent sources.
type RerankFunc func(models.RetrievalResult) models.RetrievalResult

// PostFilter adjusts or annotates the generated answer. Used for domain
// guardrails such as the legal disclaimer.
type PostFilter func(answer models.Answer, retrieval models.RetrievalResult) models.Answer

// Params configures one agent instance.
type Params struct {
	Domain        models.Domain
	Persona       string
	Welcome       string
	Help          string
	TopK          int
	Deadline      time.Duration
	MinConfidence float64
	Rerank        RerankFunc
	PostFilter    PostFilter
}

// Agent answers queries for exactly one domain.
type Agent struct {
	params    Params
	retriever Searcher
	generator Generator
}

// New builds an agent from its parameters and collaborators.
func New(params Params, retriever Searcher, generator Generator) *Agent {
	return &Agent{
		params:    params,
		retriever: retriever,
		generator: generator,
	}
}

// Domain returns the partition this agent serves.
func (a *Agent) Domain() models.Domain {
	return a.params.Domain
}

// Welcome returns the chat copy shown when the agent is selected.
func (a *Agent) Welcome() string {
	return a.params.Welcome
}

// Help returns the agent-specific help copy.
func (a *Agent) Help() string {
	return a.params.Help
}

// Answer runs the full pipeline for one query: retrieve, then generate,
// then apply the domain post-filter. A query routed to the wrong agent is
// a programming error and fails with DomainMismatch.
func (a *Agent) Answer(ctx context.Context, query models.Query) (models.Answer, error) {
	if query.Domain != a.params.Domain {
		return models.Answer{}, apperr.New(apperr.CodeDomainMismatch,
			"query for "+query.Domain.String()+" routed to "+a.params.Domain.String()+" agent")
	}

	start := time.Now()

	retrieval, err := a.retriever.Search(ctx, query, a.params.TopK)
	if err != nil {
		return models.Answer{}, err
	}

	// Empty retrieval is a legitimate outcome: answer deterministically
	// instead of asking the model to improvise over nothing.
	if len(retrieval) == 0 {
		return a.noDataAnswer(start), nil
	}

	if a.params.Rerank != nil {
		retrieval = a.params.Rerank(retrieval)
	}

	answer, err := a.generator.Complete(ctx, query, retrieval, a.params.Persona, a.params.Deadline)
	if err != nil {
		return models.Answer{}, err
	}

	if a.params.PostFilter != nil {
		answer = a.params.PostFilter(answer, retrieval)
	}

	log.Info().
		Str("agent", a.params.Domain.String()).
		Str("user_id", query.UserID).
		Float64("confidence", answer.Confidence).
		Int("sources", len(answer.Sources)).
		Msg("Query processed")

	return answer, nil
}

func (a *Agent) noDataAnswer(start time.Time) models.Answer {
	log.Warn().Str("agent", a.params.Domain.String()).Msg("No context found for query")
	return models.Answer{
		Text:       apperr.UserMessage(apperr.New(apperr.CodeNoDataFound, "")),
		Confidence: a.params.MinConfidence / 2,
		LatencyMS:  time.Since(start).Milliseconds(),
		Sources:    nil,
	}
}

// Registry resolves the agent serving a domain.
type Registry struct {
	agents map[models.Domain]*Agent
}

// NewRegistry indexes agents by domain.
func NewRegistry(agents ...*Agent) *Registry {
	m := make(map[models.Domain]*Agent, len(agents))
	for _, a := range agents {
		m[a.Domain()] = a
	}
	return &Registry{agents: m}
}

// Get returns the agent for a domain, or AgentNotFound.
func (r *Registry) Get(domain models.Domain) (*Agent, error) {
	a, ok := r.agents[domain]
	if !ok {
		return nil, apperr.New(apperr.CodeAgentNotFound, "no agent for domain "+domain.String())
	}
	return a, nil
}

// Domains lists registered domains in presentation order.
func (r *Registry) Domains() []models.Domain {
	var out []models.Domain
	for _, d := range models.Domains {
		if _, ok := r.agents[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

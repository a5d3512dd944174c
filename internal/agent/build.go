package agent

import (
	"fmt"
	"time"

	"github.com/povarna/corporate-assistant/internal/config"
	"github.com/povarna/corporate-assistant/internal/models"
)

// BuildRegistry instantiates the three domain agents from the loaded
// profiles, installing the per-domain guardrail hooks.
func BuildRegistry(cfg *config.Config, profiles *config.AgentsConfig, retriever Searcher, generator Generator) (*Registry, error) {
	var agents []*Agent

	for _, domain := range models.Domains {
		profile, ok := profiles.Profile(domain)
		if !ok {
			return nil, fmt.Errorf("missing profile for domain %q", domain)
		}

		params := Params{
			Domain:        domain,
			Persona:       profile.Persona,
			Welcome:       profile.Welcome,
			Help:          profile.Help,
			TopK:          cfg.TopK,
			Deadline:      cfg.MaxResponseTime(),
			MinConfidence: cfg.MinAccuracy,
		}
		if profile.TopK > 0 {
			params.TopK = profile.TopK
		}
		if profile.DeadlineMS > 0 {
			params.Deadline = time.Duration(profile.DeadlineMS) * time.Millisecond
		}

		switch domain {
		case models.DomainFinance:
			params.PostFilter = FinancePostFilter
		case models.DomainLegal:
			params.PostFilter = LegalPostFilter(cfg.MinAccuracy)
		case models.DomainProject:
			params.Rerank = ProjectRerank
			params.PostFilter = ProjectPostFilter
		}

		agents = append(agents, New(params, retriever, generator))
	}

	return NewRegistry(agents...), nil
}

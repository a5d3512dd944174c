package agent

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/povarna/corporate-assistant/internal/models"
)

// Domain guardrails. These are policy hooks over the shared pipeline, not
// separate algorithms: each agent keeps the same retrieve/generate flow and
// differs only in which hooks it installs.

var numberPattern = regexp.MustCompile(`\d[\d,.]*\d|\d`)

const speculativeFigureNote = "\n\n⚠️ Some figures in this answer are not present in the cited sources. Verify them with the finance team before relying on them."

// FinancePostFilter flags numeric claims that do not appear in any
// retrieved source. The finance agent must not present speculative figures
// as fact.
func FinancePostFilter(answer models.Answer, retrieval models.RetrievalResult) models.Answer {
	var sourceText strings.Builder
	for _, sc := range retrieval {
		sourceText.WriteString(sc.Chunk.Text)
		sourceText.WriteString("\n")
	}
	sources := sourceText.String()

	for _, figure := range numberPattern.FindAllString(answer.Text, -1) {
		if !strings.Contains(sources, figure) {
			answer.Text += speculativeFigureNote
			break
		}
	}
	return answer
}

const legalDisclaimer = "\n\n_This answer is for orientation only and is not legal advice. For binding interpretation, consult the legal department._"

// LegalPostFilter appends a disclaimer when confidence is below the
// configured minimum.
func LegalPostFilter(minConfidence float64) PostFilter {
	return func(answer models.Answer, retrieval models.RetrievalResult) models.Answer {
		if answer.Confidence < minConfidence {
			answer.Text += legalDisclaimer
		}
		return answer
	}
}

// metadata key the ingestion pipeline writes for document dates.
const metadataDateKey = "date"

// ProjectRerank orders sources by recency of their date metadata before
// similarity, so deadline questions surface the latest plan rather than
// the closest embedding. Undated chunks keep their similarity order after
// the dated ones.
func ProjectRerank(retrieval models.RetrievalResult) models.RetrievalResult {
	reranked := make(models.RetrievalResult, len(retrieval))
	copy(reranked, retrieval)

	sort.SliceStable(reranked, func(i, j int) bool {
		di, iOK := chunkDate(reranked[i].Chunk)
		dj, jOK := chunkDate(reranked[j].Chunk)
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		return di.After(dj)
	})
	return reranked
}

// ProjectPostFilter appends a note naming the most recent dated source, so
// the reader can tell how fresh the plan behind the answer is.
func ProjectPostFilter(answer models.Answer, retrieval models.RetrievalResult) models.Answer {
	var (
		latest     time.Time
		latestName string
	)
	for _, sc := range retrieval {
		d, ok := chunkDate(sc.Chunk)
		if !ok {
			continue
		}
		if latestName == "" || d.After(latest) {
			latest = d
			latestName = sc.Chunk.Metadata["source"]
			if latestName == "" {
				latestName = sc.Chunk.ID
			}
		}
	}
	if latestName != "" {
		answer.Text += "\n\n📅 Most recent source: " + latestName + " (" + latest.Format("2006-01-02") + ")"
	}
	return answer
}

func chunkDate(chunk models.DocumentChunk) (time.Time, bool) {
	raw, ok := chunk.Metadata[metadataDateKey]
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package matching

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/phrazzld/mentorbook-api/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Sub-score constants
const (
	neutralScore          = 0.5
	exactMatchScore       = 1.0
	partialMatchScore     = 0.7
	openAvailabilityScore = 1.0
	noAvailabilityScore   = 0.3
)

// Query is a search request: free text plus optional structured filters.
// Empty filters are treated as "not specified".
type Query struct {
	Text      string
	Expertise []string
	Industry  string
	Stage     string
}

// Score is the breakdown of a candidate's match against a query.
// Every field is in [0,1].
type Score struct {
	Expertise    float64 `json:"expertise"`
	Industry     float64 `json:"industry"`
	Stage        float64 `json:"stage"`
	Availability float64 `json:"availability"`
	Total        float64 `json:"total"`
}

// Result pairs a candidate with its score and explanation.
type Result struct {
	Candidate   domain.MatchCandidate
	Score       Score
	Explanation []string
}

// Scorer computes weighted match scores.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer after validating the weights.
func NewScorer(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights}, nil
}

// Weights returns the weights the scorer was built with.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the sub-scores and weighted total for one candidate.
func (s *Scorer) Score(candidate domain.MatchCandidate, query Query) Score {
	terms, fromText := expertiseTerms(query)
	score := Score{
		Expertise:    expertiseScore(candidate.ExpertiseTags, terms, fromText),
		Industry:     attributeScore(candidate.Industry, query.Industry),
		Stage:        attributeScore(candidate.Stage, query.Stage),
		Availability: availabilityScore(candidate.HasOpenAvailability),
	}

	score.Total = clamp(s.weights.Expertise*score.Expertise +
		s.weights.Industry*score.Industry +
		s.weights.Stage*score.Stage +
		s.weights.Availability*score.Availability)

	return score
}

// Rank scores every candidate and orders them by descending total.
// Candidates with equal totals keep their input order.
func (s *Scorer) Rank(candidates []domain.MatchCandidate, query Query) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = s.result(c, query)
	}
	sortResults(results)
	return results
}

// RankParallel behaves like Rank but scores candidates on up to concurrency
// goroutines. Each goroutine writes only its own slot; sorting starts once
// every score is in.
func (s *Scorer) RankParallel(
	ctx context.Context,
	candidates []domain.MatchCandidate,
	query Query,
	concurrency int,
) ([]Result, error) {
	if concurrency <= 1 {
		return s.Rank(candidates, query), nil
	}

	results := make([]Result, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.result(candidates[i], query)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortResults(results)
	return results, nil
}

func (s *Scorer) result(candidate domain.MatchCandidate, query Query) Result {
	score := s.Score(candidate, query)
	return Result{
		Candidate:   candidate,
		Score:       score,
		Explanation: Explain(candidate, query, score),
	}
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score.Total > results[j].Score.Total
	})
}

// ExpertiseTerms returns the expertise terms a query asks for. An explicit
// expertise filter is used as given; only when it is empty are the words of
// three or more letters in the free text used instead, minus common filler
// words. Terms are lowercased and deduplicated in first-seen order.
func ExpertiseTerms(query Query) []string {
	terms, _ := expertiseTerms(query)
	return terms
}

// expertiseTerms also reports whether the terms came from free text, which
// matches tags word by word instead of by substring.
func expertiseTerms(query Query) (terms []string, fromText bool) {
	seen := make(map[string]struct{})
	terms = make([]string, 0, len(query.Expertise))

	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, term := range query.Expertise {
		add(term)
	}
	if len(terms) > 0 {
		return terms, false
	}

	for _, word := range strings.FieldsFunc(query.Text, isWordSeparator) {
		if len([]rune(word)) < 3 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(word)]; stop {
			continue
		}
		add(word)
	}

	return terms, true
}

var stopWords = map[string]struct{}{
	"about": {}, "advice": {}, "all": {}, "and": {}, "any": {}, "are": {},
	"but": {}, "can": {}, "could": {}, "expert": {}, "find": {}, "for": {},
	"from": {}, "get": {}, "guidance": {}, "has": {}, "have": {}, "help": {},
	"how": {}, "into": {}, "looking": {}, "mentor": {}, "need": {}, "not": {},
	"our": {}, "some": {}, "someone": {}, "that": {}, "the": {}, "their": {},
	"this": {}, "using": {}, "want": {}, "what": {}, "who": {}, "with": {},
	"would": {}, "you": {}, "your": {},
}

func isWordSeparator(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	return r != '-' && r != '+' && r != '#'
}

// termMatchesTag compares a lowercased term and tag. Filter terms match when
// either contains the other; free-text words must equal the tag or one of
// its words.
func termMatchesTag(term, tag string, fromText bool) bool {
	if tag == "" {
		return false
	}
	if !fromText {
		return strings.Contains(tag, term) || strings.Contains(term, tag)
	}
	if term == tag {
		return true
	}
	for _, word := range strings.FieldsFunc(tag, isWordSeparator) {
		if word == term {
			return true
		}
	}
	return false
}

func expertiseScore(tags []string, terms []string, fromText bool) float64 {
	if len(terms) == 0 {
		return neutralScore
	}
	if len(tags) == 0 {
		return 0
	}

	lowered := make([]string, len(tags))
	for i, tag := range tags {
		lowered[i] = strings.ToLower(tag)
	}

	matched := 0
	for _, term := range terms {
		for _, tag := range lowered {
			if termMatchesTag(term, tag, fromText) {
				matched++
				break
			}
		}
	}

	return clamp(float64(matched) / float64(len(terms)))
}

// attributeScore applies the shared industry/stage rule.
func attributeScore(value, filter string) float64 {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return neutralScore
	}

	value = strings.ToLower(strings.TrimSpace(value))
	switch {
	case value == "":
		return 0
	case value == filter:
		return exactMatchScore
	case strings.Contains(value, filter) || strings.Contains(filter, value):
		return partialMatchScore
	default:
		return 0
	}
}

func availabilityScore(open bool) float64 {
	if open {
		return openAvailabilityScore
	}
	return noAvailabilityScore
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

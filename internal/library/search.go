package library

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinSearchScore is the lowest similarity a search hit may have.
const MinSearchScore = 0.70

// Match is a search hit against a merged view.
type Match struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// Search ranks items by title similarity to query. A cleaned title that
// contains the cleaned query scores 1. Otherwise Jaro-Winkler similarity is
// used and hits below MinSearchScore are dropped. limit <= 0 returns all hits.
func Search(view []Item, query string, limit int) []Match {
	q := CleanTitle(query)
	if q == "" {
		return nil
	}

	var matches []Match
	for _, it := range view {
		title := CleanTitle(it.Title)
		var score float64
		if strings.Contains(title, q) {
			score = 1
		} else {
			score = float64(edlib.JaroWinklerSimilarity(q, title))
		}
		if score < MinSearchScore {
			continue
		}
		matches = append(matches, Match{Item: it, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// CleanTitle lowercases a title and strips accents, punctuation and leading articles.
func CleanTitle(title string) string {
	s := strings.ToLower(title)
	s = removeAccents(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ".", " ")

	// "Léon: The Professional" drops the article of each part.
	parts := strings.Split(s, ":")
	for i, part := range parts {
		parts[i] = stripLeadingArticle(part)
	}
	s = strings.Join(parts, " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

func stripLeadingArticle(s string) string {
	s = strings.TrimSpace(s)
	for _, art := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(s, art) {
			return strings.TrimPrefix(s, art)
		}
	}
	return s
}

package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
)

const (
	defaultTop       = 3
	retrievalText    = "text"
	retrievalVectors = "vectors"
	retrievalHybrid  = "hybrid"
	overridesKey     = "overrides"
	followupOpen     = "<<"
	followupClose    = ">>"
)

// overrides are the per-request knobs the client may send under context["overrides"].
type overrides struct {
	Top              int
	Temperature      *float32
	RetrievalMode    string
	SemanticRanker   bool
	SemanticCaptions bool
	ExcludeCategory  string
	SuggestFollowups bool
}

func parseOverrides(reqCtx map[string]any) overrides {
	o := overrides{Top: defaultTop, RetrievalMode: retrievalHybrid}

	raw, ok := reqCtx[overridesKey].(map[string]any)
	if !ok {
		return o
	}

	if v, ok := raw["top"].(float64); ok && v > 0 {
		o.Top = int(v)
	}
	if v, ok := raw["temperature"].(float64); ok {
		t := float32(v)
		o.Temperature = &t
	}
	if v, ok := raw["retrieval_mode"].(string); ok {
		switch v {
		case retrievalText, retrievalVectors, retrievalHybrid:
			o.RetrievalMode = v
		}
	}
	o.SemanticRanker, _ = raw["semantic_ranker"].(bool)
	o.SemanticCaptions, _ = raw["semantic_captions"].(bool)
	o.ExcludeCategory, _ = raw["exclude_category"].(string)
	o.SuggestFollowups, _ = raw["suggest_followup_questions"].(bool)

	return o
}

func (o overrides) temperature(def float32) float32 {
	if o.Temperature != nil {
		return wireTemperature(*o.Temperature)
	}
	return wireTemperature(def)
}

// wireTemperature keeps a zero temperature on the wire. The completion
// request omits a zero value, which the service reads as its default of 1.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (o overrides) useText() bool {
	return o.RetrievalMode != retrievalVectors
}

func (o overrides) useVectors() bool {
	return o.RetrievalMode != retrievalText
}

// buildFilter combines the category exclusion with the caller's security
// filter. Empty claims add no security filter.
func buildFilter(o overrides, reqCtx map[string]any) string {
	var filters []string

	if o.ExcludeCategory != "" {
		filters = append(filters, fmt.Sprintf("category ne '%s'", odataEscape(o.ExcludeCategory)))
	}
	if sec := securityFilter(reqCtx); sec != "" {
		filters = append(filters, sec)
	}

	return strings.Join(filters, " and ")
}

func securityFilter(reqCtx map[string]any) string {
	claims, ok := reqCtx[entity.ContextKeyAuthClaims].(map[string]any)
	if !ok {
		return ""
	}

	var parts []string
	if oid, _ := claims["oid"].(string); oid != "" {
		parts = append(parts, fmt.Sprintf("oids/any(g:search.in(g, '%s'))", odataEscape(oid)))
	}
	if groups := stringList(claims["groups"]); len(groups) > 0 {
		parts = append(parts, fmt.Sprintf("groups/any(g:search.in(g, '%s'))", odataEscape(strings.Join(groups, ", "))))
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " or ") + ")"
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func odataEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// extractFollowups splits "<<question>>" markers off the end of an answer.
func extractFollowups(content string) (string, []string) {
	idx := strings.Index(content, followupOpen)
	if idx < 0 {
		return content, nil
	}

	var questions []string
	rest := content[idx:]
	for {
		start := strings.Index(rest, followupOpen)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], followupClose)
		if end < 0 {
			break
		}
		if q := strings.TrimSpace(rest[start+len(followupOpen) : start+end]); q != "" {
			questions = append(questions, q)
		}
		rest = rest[start+end+len(followupClose):]
	}

	return strings.TrimSpace(content[:idx]), questions
}

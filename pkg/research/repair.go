package research

// defaultImportance is substituted when a question arrives without a usable
// importance value.
const defaultImportance = 3

// RepairPlan normalizes a parsed, untrusted plan structure into the canonical
// shape: "objective" a string, "questions" a list of question objects with a
// 1-5 importance, "depth" an integer in 1-3. Model output commonly wraps
// scalars one level deep under "value", delivers a lone object where a list is
// expected, or omits sub-fields entirely; each rule below is applied per field
// and well-formed fields pass through untouched. RepairPlan never fails and is
// idempotent: repairing an already repaired structure changes nothing.
// Non-mapping input yields an empty mapping.
func RepairPlan(raw any) map[string]any {
	src, ok := raw.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}

	if v, ok := src["objective"]; ok {
		if s, ok := stringValue(v); ok {
			out["objective"] = s
		} else {
			delete(out, "objective")
		}
	}

	if v, ok := src["questions"]; ok {
		if qs, ok := repairQuestions(v); ok {
			out["questions"] = qs
		} else {
			delete(out, "questions")
		}
	}

	if v, ok := src["depth"]; ok {
		if d, ok := intValue(v); ok {
			out["depth"] = clampInt(d, 1, 3)
		} else {
			delete(out, "depth")
		}
	}

	return out
}

func repairQuestions(v any) ([]any, bool) {
	switch q := unwrapValue(v).(type) {
	case []any:
		out := make([]any, 0, len(q))
		for _, entry := range q {
			if m, ok := repairQuestion(entry); ok {
				out = append(out, m)
			}
		}
		return out, true
	case map[string]any, string:
		m, ok := repairQuestion(q)
		if !ok {
			return nil, false
		}
		return []any{m}, true
	default:
		return nil, false
	}
}

func repairQuestion(v any) (map[string]any, bool) {
	switch q := v.(type) {
	case string:
		if q == "" {
			return nil, false
		}
		return map[string]any{"question": q, "importance": defaultImportance}, true
	case map[string]any:
		out := make(map[string]any, len(q))
		for k, val := range q {
			out[k] = val
		}

		text, ok := stringValue(q["question"])
		if !ok || text == "" {
			return nil, false
		}
		out["question"] = text

		if imp, ok := intValue(q["importance"]); ok {
			out["importance"] = clampInt(imp, 1, 5)
		} else {
			out["importance"] = defaultImportance
		}

		if s, ok := q["sources"]; ok {
			out["sources"] = repairSources(s)
		}
		return out, true
	default:
		return nil, false
	}
}

func repairSources(v any) []any {
	switch s := unwrapValue(v).(type) {
	case []any:
		out := make([]any, 0, len(s))
		for _, entry := range s {
			if str, ok := stringValue(entry); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case string:
		if s == "" {
			return []any{}
		}
		return []any{s}
	default:
		return []any{}
	}
}

// unwrapValue strips the {"value": X} indirection models sometimes add
// around scalar fields.
func unwrapValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["value"]; ok {
			return inner
		}
	}
	return v
}

func stringValue(v any) (string, bool) {
	s, ok := unwrapValue(v).(string)
	return s, ok
}

func intValue(v any) (int, bool) {
	switch n := unwrapValue(v).(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

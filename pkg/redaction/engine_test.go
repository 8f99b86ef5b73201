package redaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-labs/aegis-core/pkg/access"
	"github.com/aegis-labs/aegis-core/pkg/classification"
	"github.com/aegis-labs/aegis-core/pkg/policy"
)

func allowedDecision(clearance classification.Level) access.Decision {
	return access.Decision{Allowed: true, SubjectClearance: clearance}
}

func mustPolicy(t *testing.T, fieldRules []policy.FieldRedactionRule, portionRules []policy.PortionRedactionRule) *policy.Policy {
	t.Helper()
	p, err := policy.New("test", "1.0.0", fieldRules, portionRules)
	require.NoError(t, err)
	return p
}

func secretMaskRule(path string, strategy policy.Strategy) policy.FieldRedactionRule {
	secret := classification.Secret
	return policy.FieldRedactionRule{FieldPath: path, Strategy: strategy, RequiredClearance: &secret}
}

func TestRedact_MaskSimpleField(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("subject.ssn", policy.StrategyMask)}, nil)
	payload := map[string]any{
		"subject": map[string]any{"name": "J. Doe", "ssn": "123-45-6789"},
	}

	out, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
	require.NoError(t, err)

	subject := out["subject"].(map[string]any)
	require.Equal(t, policy.MaskSentinel, subject["ssn"])
	require.Equal(t, "J. Doe", subject["name"])
}

func TestRedact_RemoveField(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("subject.ssn", policy.StrategyRemove)}, nil)
	payload := map[string]any{
		"subject": map[string]any{"name": "J. Doe", "ssn": "123-45-6789"},
	}

	out, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
	require.NoError(t, err)

	subject := out["subject"].(map[string]any)
	_, present := subject["ssn"]
	require.False(t, present)
}

func TestRedact_WildcardLengths(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("items[*].ssn", policy.StrategyMask)}, nil)

	for _, n := range []int{0, 1, 3} {
		items := make([]any, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, map[string]any{"id": i, "ssn": "123-45-6789"})
		}
		payload := map[string]any{"items": items}

		out, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
		require.NoError(t, err)

		outItems := out["items"].([]any)
		require.Len(t, outItems, n)
		for _, item := range outItems {
			require.Equal(t, policy.MaskSentinel, item.(map[string]any)["ssn"])
		}
	}
}

func TestRedact_IndexedSegment(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("items[1].ssn", policy.StrategyMask)}, nil)
	payload := map[string]any{"items": []any{
		map[string]any{"ssn": "a"},
		map[string]any{"ssn": "b"},
	}}

	out, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
	require.NoError(t, err)

	items := out["items"].([]any)
	require.Equal(t, "a", items[0].(map[string]any)["ssn"])
	require.Equal(t, policy.MaskSentinel, items[1].(map[string]any)["ssn"])
}

func TestRedact_MissingPathIsNoOp(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("absent.field", policy.StrategyMask)}, nil)
	payload := map[string]any{"present": "value"}

	out, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestRedact_Idempotent(t *testing.T) {
	secret := classification.Secret
	pol := mustPolicy(t,
		[]policy.FieldRedactionRule{
			secretMaskRule("subject.ssn", policy.StrategyMask),
			secretMaskRule("items[*].secret", policy.StrategyRemove),
			{FieldPath: "subject.phone", Strategy: policy.StrategyTruncate, RequiredClearance: &secret},
			{FieldPath: "subject.alias", Strategy: policy.StrategyMaskAsterisks, RequiredClearance: &secret},
		},
		[]policy.PortionRedactionRule{
			{PortionName: "sources", MinimumClearance: classification.TopSecret, Strategy: policy.StrategyRemove},
		})

	payload := map[string]any{
		"subject": map[string]any{"ssn": "123-45-6789", "phone": "555-0100-200", "alias": "nightowl"},
		"items":   []any{map[string]any{"secret": "x", "keep": "y"}},
		"report":  map[string]any{"sources": []any{"s1"}, "summary": "ok"},
	}

	dec := allowedDecision(classification.CUI)
	once, err := Redact(payload, dec, pol, nil)
	require.NoError(t, err)
	twice, err := Redact(once, dec, pol, nil)
	require.NoError(t, err)

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	require.JSONEq(t, string(a), string(b))
}

func TestRedact_DoesNotMutateInput(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("subject.ssn", policy.StrategyMask)}, nil)
	payload := map[string]any{
		"subject": map[string]any{"ssn": "123-45-6789"},
	}

	_, err := Redact(payload, allowedDecision(classification.CUI), pol, nil)
	require.NoError(t, err)
	require.Equal(t, "123-45-6789", payload["subject"].(map[string]any)["ssn"])
}

func TestRedact_BypassCompartments(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{
		{FieldPath: "intel", Strategy: policy.StrategyRemove, BypassCompartments: []classification.Compartment{classification.Humint}},
	}, nil)
	payload := map[string]any{"intel": "raw", "open": "data"}

	// Without the bypass compartment the rule applies.
	out, err := Redact(payload, allowedDecision(classification.TSSCI), pol, nil)
	require.NoError(t, err)
	_, present := out["intel"]
	require.False(t, present)

	// Holding the full bypass set skips the rule.
	out, err = Redact(payload, allowedDecision(classification.TSSCI), pol, []classification.Compartment{classification.Humint})
	require.NoError(t, err)
	require.Equal(t, "raw", out["intel"])
}

func TestRedact_PortionAtAnyDepth(t *testing.T) {
	pol := mustPolicy(t, nil, []policy.PortionRedactionRule{
		{PortionName: "sources", MinimumClearance: classification.TopSecret, Strategy: policy.StrategyRemove},
	})
	payload := map[string]any{
		"sources": "top",
		"report": map[string]any{
			"sources": []any{"s1", "s2"},
			"items":   []any{map[string]any{"sources": "nested", "keep": true}},
		},
	}

	out, err := Redact(payload, allowedDecision(classification.Secret), pol, nil)
	require.NoError(t, err)

	_, present := out["sources"]
	require.False(t, present)
	report := out["report"].(map[string]any)
	_, present = report["sources"]
	require.False(t, present)
	item := report["items"].([]any)[0].(map[string]any)
	_, present = item["sources"]
	require.False(t, present)
	require.Equal(t, true, item["keep"])
}

func TestRedact_PortionMask(t *testing.T) {
	pol := mustPolicy(t, nil, []policy.PortionRedactionRule{
		{PortionName: "sources", MinimumClearance: classification.TopSecret, Strategy: policy.StrategyMask},
	})
	payload := map[string]any{"sources": []any{"s1"}}

	out, err := Redact(payload, allowedDecision(classification.Secret), pol, nil)
	require.NoError(t, err)
	require.Equal(t, policy.MaskSentinel, out["sources"])
}

func TestRedact_ClearedPrincipalSkipsRules(t *testing.T) {
	pol := mustPolicy(t, []policy.FieldRedactionRule{secretMaskRule("ssn", policy.StrategyMask)}, nil)
	payload := map[string]any{"ssn": "123-45-6789"}

	out, err := Redact(payload, allowedDecision(classification.TopSecret), pol, nil)
	require.NoError(t, err)
	require.Equal(t, "123-45-6789", out["ssn"])
}

func TestRedact_DeniedDecisionRejected(t *testing.T) {
	pol := mustPolicy(t, nil, nil)
	_, err := Redact(map[string]any{}, access.Decision{Allowed: false}, pol, nil)
	require.ErrorIs(t, err, ErrDecisionNotAllowed)
}

func TestRedact_NilPolicyReturnsCopy(t *testing.T) {
	payload := map[string]any{"a": 1}
	out, err := Redact(payload, allowedDecision(classification.Unclassified), nil, nil)
	require.NoError(t, err)
	require.Equal(t, payload, out)

	out["a"] = 2
	require.Equal(t, 1, payload["a"])
}

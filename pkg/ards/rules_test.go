package ards

import "testing"

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	matcher, err := NewMatcher(DefaultRules())
	if err != nil {
		t.Fatalf("failed to compile default rules: %v", err)
	}
	return matcher
}

func TestMatcherMatchesEvidence(t *testing.T) {
	matcher := newTestMatcher(t)

	positives := []string{
		"IMPRESSION: Findings consistent with ARDS.",
		"Bilateral infiltrates are present, worse at the bases.",
		"bilateral pulmonary opacities compatible with acute lung injury",
		"Pattern suggestive of diffuse alveolar damage.",
		"Noncardiogenic pulmonary edema is favored over volume overload.",
	}
	for _, text := range positives {
		if !matcher.Match(text) {
			t.Fatalf("expected match for %q", text)
		}
	}

	negatives := []string{
		"Clear lungs. Normal cardiac silhouette.",
		"Right lower lobe pneumonia, unilateral.",
		"",
	}
	for _, text := range negatives {
		if matcher.Match(text) {
			t.Fatalf("expected no match for %q", text)
		}
	}
}

func TestMatcherNegationVetoes(t *testing.T) {
	matcher := newTestMatcher(t)

	if matcher.Match("No evidence of ARDS or bilateral infiltrates.") {
		t.Fatal("expected negated report to be rejected")
	}
	if matcher.Match("Previously noted bilateral infiltrates have resolved.") {
		t.Fatal("expected resolved finding to be rejected")
	}
	if !matcher.Match("Bilateral infiltrates; no acute osseous abnormality. ARDS likely.") {
		t.Fatal("expected report without a negation phrase to match")
	}
}

func TestMatcherIsCaseInsensitive(t *testing.T) {
	matcher := newTestMatcher(t)
	if !matcher.Match("BILATERAL INFILTRATES") {
		t.Fatal("expected uppercase text to match")
	}
}

func TestNewMatcherRequiresPositiveRule(t *testing.T) {
	cfg := RulesConfig{Rules: []TextRule{
		{Name: "no_evidence", Pattern: "no evidence of", Negation: true, Enabled: true},
	}}
	if _, err := NewMatcher(cfg); err == nil {
		t.Fatal("expected error when only negation rules are enabled")
	}
}

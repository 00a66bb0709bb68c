//go:build !integration

package i18n

import (
	"fmt"
	"testing"
	"testing/fstest"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: hola\nwelcome_user: hola %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "hola" {
			t.Errorf("wanted 'hola', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ana"); got != "hola Ana" {
			t.Errorf("wanted 'hola Ana', got '%s'", got)
		}
	})
}

func TestEmbeddedLocalesHaveSameKeys(t *testing.T) {
	b, err := LoadBundle(LocalesFS, DefaultLang)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	en := b.byLang["en"]
	for _, lang := range b.Languages() {
		tr := b.byLang[lang]
		if len(tr.translations) != len(en.translations) {
			t.Errorf("locale %s has %d keys, en has %d", lang, len(tr.translations), len(en.translations))
		}
		for k := range en.translations {
			if _, ok := tr.translations[k]; !ok {
				t.Errorf("locale %s is missing %q", lang, k)
			}
		}
	}
}

func TestDenial(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"insufficient", fmt.Errorf("redeem: %w", &domain.InsufficientPointsError{Required: 500, Available: 200}), "You need 500 points but have 200."},
		{"tier", &domain.TierTooLowError{CustomerTier: "BRONZE", RequiredTier: "GOLD"}, "This reward requires GOLD tier; you are BRONZE."},
		{"missing reward", &domain.RewardUnavailableError{RewardID: "r1", Reason: domain.RewardMissing}, "Reward not found."},
		{"expired reward", &domain.RewardUnavailableError{RewardID: "r1", Reason: domain.RewardExpired}, "This reward is not available right now."},
		{"usage", &domain.UsageLimitReachedError{RewardID: "r1", Limit: 3}, "This reward has been fully redeemed."},
		{"referral", domain.ErrInvalidReferralCode, "That referral code is not valid."},
		{"unknown", fmt.Errorf("boom"), "Something went wrong. Please try again later."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tr.Denial(tc.err); got != tc.want {
				t.Errorf("wanted %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDecision(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator: %v", err)
	}
	if got := tr.Decision(model.AccessDecision{Granted: true}); got != "" {
		t.Errorf("expected empty message for granted decision, got %q", got)
	}
	got := tr.Decision(model.AccessDecision{Reason: model.DenyRequiresHigherPlan, PlanName: "Basic"})
	if got != "Your current plan (Basic) does not include this feature." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestBundleMatch(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("hello: hello")},
		"locales/es.yaml": {Data: []byte("hello: hola")},
		"locales/README":  {Data: []byte("ignored")},
	}
	b, err := LoadBundle(fsys, "en")
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	cases := map[string]string{
		"":                "en",
		"es-MX,es;q=0.9":  "es",
		"fr-FR, es;q=0.5": "es",
		"de":              "en",
		"ES":              "es",
	}
	for header, want := range cases {
		if got := b.Match(header).Lang(); got != want {
			t.Errorf("Match(%q) = %s, want %s", header, got, want)
		}
	}

	if _, err := LoadBundle(fsys, "fa"); err == nil {
		t.Error("expected an error for a missing fallback locale")
	}
}

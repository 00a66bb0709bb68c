package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
)

//go:embed locales
var LocalesFS embed.FS

const DefaultLang = "en"

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) Lang() string { return t.lang }

// T returns the message for key, or key itself when it is missing.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Denial renders a user-facing message for a loyalty or gate error.
func (t *Translator) Denial(err error) string {
	var (
		insufficient *domain.InsufficientPointsError
		tier         *domain.TierTooLowError
		unavailable  *domain.RewardUnavailableError
	)
	switch {
	case errors.As(err, &insufficient):
		return t.T("insufficient_points", insufficient.Required, insufficient.Available)
	case errors.As(err, &tier):
		return t.T("tier_too_low", tier.RequiredTier, tier.CustomerTier)
	case errors.As(err, &unavailable):
		if unavailable.Reason == domain.RewardMissing {
			return t.T("reward_not_found")
		}
		return t.T("reward_unavailable")
	case errors.Is(err, domain.ErrUsageLimitReached):
		return t.T("usage_limit_reached")
	case errors.Is(err, domain.ErrInvalidReferralCode):
		return t.T("invalid_referral_code")
	case errors.Is(err, domain.ErrNotFound):
		return t.T("not_found")
	case errors.Is(err, domain.ErrInvalidArgument):
		return t.T("invalid_argument")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return t.T("concurrency_conflict")
	}
	return t.T("internal_error")
}

// Decision renders the reason of a denied access decision. Granted decisions yield "".
func (t *Translator) Decision(d model.AccessDecision) string {
	switch {
	case d.Granted:
		return ""
	case d.Reason == model.DenyNoActiveSubscription:
		return t.T("no_active_subscription")
	default:
		return t.T("requires_higher_plan", d.PlanName)
	}
}

// Bundle holds every embedded locale and picks one per request.
type Bundle struct {
	byLang   map[string]*Translator
	fallback *Translator
}

// LoadBundle reads all locales/*.yaml files. The fallback language must be present.
func LoadBundle(fsys fs.FS, fallback string) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	b := &Bundle{byLang: make(map[string]*Translator, len(entries))}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		lang := strings.TrimSuffix(name, ".yaml")
		t, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		b.byLang[lang] = t
	}
	fb, ok := b.byLang[fallback]
	if !ok {
		return nil, fmt.Errorf("fallback locale %q not found", fallback)
	}
	b.fallback = fb
	return b, nil
}

// Languages lists the loaded locales, sorted.
func (b *Bundle) Languages() []string {
	out := make([]string, 0, len(b.byLang))
	for l := range b.byLang {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Match picks a translator from an Accept-Language header. Quality values are ignored;
// the first listed language we have wins.
func (b *Bundle) Match(acceptLanguage string) *Translator {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if t, ok := b.byLang[base]; ok {
			return t
		}
	}
	return b.fallback
}

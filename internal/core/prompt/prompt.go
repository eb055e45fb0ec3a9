// Package prompt assembles the system prompts and conversation context
// sent to the model.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Modes
// =============================================================================

// Mode selects which system prompt is used for a request.
type Mode string

const (
	// ModeContext is used when real activity logs exist for the baby.
	ModeContext Mode = "context"

	// ModeGeneral is used when no baby or no logs are available.
	ModeGeneral Mode = "general"
)

// =============================================================================
// Default Prompts
// =============================================================================

// The product ships in Turkish; the defaults below are the production prompts.
// Deployments can replace them with a YAML pack (see LoadPack).

const defaultContextPrompt = `Sen BabyAI'sin. Kısa ve öz yanıt ver:
- En fazla 4 madde ya da 3-5 kısa cümle yaz.
- Yalnızca aşağıdaki BEBEK KAYITLARI ve sohbet geçmişine dayan.
- Kayıtlarda yoksa "Bu bilgi elimde yok." de.
- Tıbbi tanı verme; risk görürsen kibarca doktora yönlendir.

BEBEK KAYITLARI:
%s`

const defaultGeneralPrompt = `Sen BabyAI'sin. Kısa ve pratik yanıt ver:
- En fazla 4 madde ya da 3-5 kısa cümle.
- Kanıta dayalı, yaşa uygun genel öneriler ver; kişisel veri yok.
- Tıbbi tanı verme; risk görürsen kibarca doktora yönlendir.`

// DefaultFallbackAnswer is returned to the user when the model call fails.
const DefaultFallbackAnswer = "Şu anda yanıt oluştururken bir sorun yaşadım. Lütfen tekrar dener misiniz?"

// =============================================================================
// Pack
// =============================================================================

// Pack holds the system prompt templates for both modes.
// The context template must contain exactly one %s verb where the rendered
// report text is substituted.
type Pack struct {
	Context  string `yaml:"context"`
	General  string `yaml:"general"`
	Fallback string `yaml:"fallback"`
}

// DefaultPack returns the built-in prompt pack.
func DefaultPack() Pack {
	return Pack{
		Context:  defaultContextPrompt,
		General:  defaultGeneralPrompt,
		Fallback: DefaultFallbackAnswer,
	}
}

// LoadPack reads a YAML prompt pack from path. Missing fields fall back to
// the built-in defaults so a pack may override only one prompt.
func LoadPack(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read prompt pack: %w", err)
	}

	pack := DefaultPack()
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return Pack{}, fmt.Errorf("parse prompt pack: %w", err)
	}
	if err := pack.Validate(); err != nil {
		return Pack{}, err
	}
	return pack, nil
}

// Validate checks that the pack templates are usable.
func (p Pack) Validate() error {
	if strings.TrimSpace(p.Context) == "" {
		return fmt.Errorf("prompt pack: context prompt is empty")
	}
	if strings.Count(p.Context, "%s") != 1 {
		return fmt.Errorf("prompt pack: context prompt must contain exactly one %%s placeholder")
	}
	if strings.TrimSpace(p.General) == "" {
		return fmt.Errorf("prompt pack: general prompt is empty")
	}
	if strings.TrimSpace(p.Fallback) == "" {
		return fmt.Errorf("prompt pack: fallback answer is empty")
	}
	return nil
}

// System renders the system prompt for the given mode. reportText is only
// consulted in context mode.
func (p Pack) System(mode Mode, reportText string) string {
	if mode == ModeContext {
		return fmt.Sprintf(p.Context, reportText)
	}
	return p.General
}

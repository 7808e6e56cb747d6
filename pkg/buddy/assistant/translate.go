package assistant

// Translator converts a reply into the target language.
type Translator interface {
	Translate(text, targetLang string) string
}

// IdentityTranslator returns text unchanged.
type IdentityTranslator struct{}

// Translate implements Translator.
func (IdentityTranslator) Translate(text, _ string) string { return text }

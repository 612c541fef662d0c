package templating

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
)

var (
	placeholderRegexp = regexp.MustCompile(`({{\s?[\w-]+\s?}})`)
	keywordRegexp     = regexp.MustCompile(`^{{\s?([\w-]+)\s?}}$`)
)

// CompiledTemplate is a command template with `{{ keyword }}` placeholders, e.g. `behave --junit-directory {{ reports }}`
type CompiledTemplate struct {
	Template             string
	PlaceholderToKeyword map[string]string
}

func CompileTemplate(template string) (CompiledTemplate, error) {
	placeholders := placeholderRegexp.FindAllString(template, -1)
	if len(placeholders) == 0 {
		return CompiledTemplate{Template: template, PlaceholderToKeyword: map[string]string{}}, nil
	}

	keywordsSubstituted := make(map[string]struct{}, len(placeholders))
	placeholderToKeyword := make(map[string]string, len(placeholders))
	for _, placeholder := range placeholders {
		submatches := keywordRegexp.FindStringSubmatch(placeholder)
		if len(submatches) != 2 {
			return CompiledTemplate{}, errors.NewInputError(
				"template included a malformed placeholder '%v'",
				placeholder,
			)
		}

		keyword := submatches[1]
		if _, ok := keywordsSubstituted[keyword]; ok {
			return CompiledTemplate{}, errors.NewInputError(
				"template requested duplicate substitution of placeholder '%v'",
				keyword,
			)
		}
		keywordsSubstituted[keyword] = struct{}{}
		placeholderToKeyword[placeholder] = keyword
	}

	return CompiledTemplate{Template: template, PlaceholderToKeyword: placeholderToKeyword}, nil
}

// Keywords are sorted alphabetically
func (ct CompiledTemplate) Keywords() []string {
	keywords := make([]string, 0, len(ct.PlaceholderToKeyword))
	for _, keyword := range ct.PlaceholderToKeyword {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	return keywords
}

// Validate returns an error for the first keyword that isn't in `allowed`
func (ct CompiledTemplate) Validate(allowed ...string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, keyword := range allowed {
		known[keyword] = struct{}{}
	}

	for _, keyword := range ct.Keywords() {
		if _, ok := known[keyword]; !ok {
			return errors.NewInputError(
				"template requested unknown placeholder '%v', supported are: %v",
				keyword,
				strings.Join(allowed, ", "),
			)
		}
	}

	return nil
}

func (ct CompiledTemplate) Substitute(substitutionLookup map[string]string) string {
	substituted := ct.Template
	for placeholder, keyword := range ct.PlaceholderToKeyword {
		substituted = strings.Replace(substituted, placeholder, substitutionLookup[keyword], 1)
	}
	return substituted
}

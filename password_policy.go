package users

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-errors"
)

// CharClass names a character class the password policy can require.
type CharClass = string

const (
	ClassUpper       CharClass = "UPPER"
	ClassLower       CharClass = "LOWER"
	ClassDigits      CharClass = "DIGITS"
	ClassPunctuation CharClass = "PUNCTUATION"
)

// punctuationChars matches the classic ASCII punctuation set.
const punctuationChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// PasswordPolicy is a configuration value, not an entity. A zero value
// accepts everything.
type PasswordPolicy struct {
	// MinLength and MaxLength bound the password length in characters.
	// Zero disables the respective bound.
	MinLength int
	MaxLength int
	// Classes maps a character class to the minimum number of distinct
	// qualifying characters the password must contain. Repeated characters
	// of the same class count once.
	Classes map[CharClass]int
}

// classOrder is the order violations are reported in; checks short-circuit
// on the first failure.
var classOrder = []CharClass{ClassUpper, ClassLower, ClassDigits, ClassPunctuation}

var classLabels = map[CharClass]string{
	ClassUpper:       "uppercase characters (A-Z)",
	ClassLower:       "lowercase characters (a-z)",
	ClassDigits:      "numbers (0-9)",
	ClassPunctuation: "symbols",
}

// Validate checks the candidate password against the policy. Length is
// checked first, then each configured class minimum.
func (p PasswordPolicy) Validate(password string) error {
	length := utf8.RuneCountInString(password)

	if p.MinLength > 0 && length < p.MinLength {
		return errors.New(
			fmt.Sprintf("password too short (must be %d characters or more)", p.MinLength),
			errors.CategoryValidation,
		).WithTextCode(TextCodePasswordLength).WithMetadata(map[string]any{
			"min_length": p.MinLength,
		})
	}

	if p.MaxLength > 0 && length > p.MaxLength {
		return errors.New(
			fmt.Sprintf("password too long (must be %d characters or less)", p.MaxLength),
			errors.CategoryValidation,
		).WithTextCode(TextCodePasswordLength).WithMetadata(map[string]any{
			"max_length": p.MaxLength,
		})
	}

	if len(p.Classes) == 0 {
		return nil
	}

	counts := classCounts(password)
	for _, class := range classOrder {
		min := p.Classes[class]
		if min <= 0 {
			continue
		}
		if counts[class] < min {
			return errors.New(
				fmt.Sprintf("weak password, must contain %d or more %s", min, classLabels[class]),
				errors.CategoryValidation,
			).WithTextCode(TextCodePasswordWeak).WithMetadata(map[string]any{
				"class":    class,
				"required": min,
			})
		}
	}

	return nil
}

// classCounts tallies distinct characters per class. Every character belongs
// to exactly one class, tested upper, lower, digit, punctuation, other.
func classCounts(password string) map[CharClass]int {
	seen := map[CharClass]map[rune]struct{}{
		ClassUpper:       {},
		ClassLower:       {},
		ClassDigits:      {},
		ClassPunctuation: {},
	}

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			seen[ClassUpper][r] = struct{}{}
		case unicode.IsLower(r):
			seen[ClassLower][r] = struct{}{}
		case unicode.IsDigit(r):
			seen[ClassDigits][r] = struct{}{}
		case strings.ContainsRune(punctuationChars, r):
			seen[ClassPunctuation][r] = struct{}{}
		}
	}

	counts := make(map[CharClass]int, len(seen))
	for class, runes := range seen {
		counts[class] = len(runes)
	}
	return counts
}

package rules

import (
	"strings"

	"github.com/commie294/T4t/internal/domain/enums"
)

var genderLabels = map[string]enums.Gender{
	"транс-женщина":      enums.GenderTransWoman,
	"транс-мужчина":      enums.GenderTransMan,
	"небинарная персона": enums.GenderNonBinary,
	"другое":             enums.GenderOther,
}

// ParseGender maps a keyboard label to a gender value. Free-form input that
// matches no label is kept by the caller as the detail text for GenderOther.
func ParseGender(text string) (enums.Gender, bool) {
	g, ok := genderLabels[strings.ToLower(strings.TrimSpace(text))]
	return g, ok
}

func GenderLabel(g enums.Gender) string {
	switch g {
	case enums.GenderTransWoman:
		return "Транс-женщина"
	case enums.GenderTransMan:
		return "Транс-мужчина"
	case enums.GenderNonBinary:
		return "Небинарная персона"
	case enums.GenderOther:
		return "Другое"
	default:
		return string(g)
	}
}

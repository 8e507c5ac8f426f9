package rules

const (
	// MinAge is the youngest age a profile may declare.
	MinAge = 16
	// MaxAge guards against typo ages.
	MaxAge = 100
	// AdultAge splits the candidate pool into two partitions that never mix.
	AdultAge = 18
)

func ValidAge(age int) bool {
	return age >= MinAge && age <= MaxAge
}

func IsAdult(age int) bool {
	return age >= AdultAge
}

// AgeBucket is a coarse age-preference range. Max == 0 means open-ended.
type AgeBucket struct {
	Label string
	Min   int
	Max   int
}

var ageBuckets = []AgeBucket{
	{Label: "any"},
	{Label: "18-25", Min: 18, Max: 25},
	{Label: "26-35", Min: 26, Max: 35},
	{Label: "36-45", Min: 36, Max: 45},
	{Label: "46+", Min: 46},
}

func AgeBuckets() []AgeBucket {
	out := make([]AgeBucket, len(ageBuckets))
	copy(out, ageBuckets)
	return out
}

func ParseAgeBucket(label string) (AgeBucket, bool) {
	for _, b := range ageBuckets {
		if b.Label == label {
			return b, true
		}
	}
	return AgeBucket{}, false
}

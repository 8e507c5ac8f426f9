package enums

// CityMode narrows candidate search by the viewer's own city.
type CityMode string

const (
	CityModeAny   CityMode = "any"
	CityModeSame  CityMode = "same"
	CityModeOther CityMode = "other"
)

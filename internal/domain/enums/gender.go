package enums

type Gender string

const (
	GenderTransWoman Gender = "trans_woman"
	GenderTransMan   Gender = "trans_man"
	GenderNonBinary  Gender = "non_binary"
	GenderOther      Gender = "other"
)

package enums

type ReportStatus string

const (
	ReportStatusOpen    ReportStatus = "open"
	ReportStatusDecided ReportStatus = "decided"
)

type ReportDecision string

const (
	ReportDecisionBlock   ReportDecision = "block"
	ReportDecisionWarn    ReportDecision = "warn"
	ReportDecisionDismiss ReportDecision = "dismiss"
)

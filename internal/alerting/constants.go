// Package alerting provides the agricultural alert rules engine: condition
// evaluation over per-user context snapshots, template rendering, alert
// generation, deduplication, delivery and lifecycle management.
package alerting

// Condition operators define how context values are compared.
const (
	OperatorEq       = "eq"
	OperatorNe       = "ne"
	OperatorGt       = "gt"
	OperatorGte      = "gte"
	OperatorLt       = "lt"
	OperatorLte      = "lte"
	OperatorContains = "contains"
	OperatorIn       = "in"
)

// Combinator operators join condition sub-trees.
const (
	CombinatorAnd = "AND"
	CombinatorOr  = "OR"
	CombinatorNot = "NOT"
)

// Metadata keys stored in Alert.Metadata.
const (
	MetaRuleID   = "rule_id"
	MetaRuleName = "rule_name"
	MetaManual   = "manual"
)

// Delivery policy.
const (
	// maxDeliveryRetries is the number of failed delivery attempts after
	// which an alert is forced to expired instead of retried again.
	maxDeliveryRetries = 3

	// manualAlertTTLHours is the default TTL for manually created alerts.
	manualAlertTTLHours = 72

	// plantingRetentionDays bounds how long planting-opportunity alerts are
	// kept before cleanup purges them.
	plantingRetentionDays = 30
)

// Seasons derived from the month (Northern-hemisphere quarters).
const (
	SeasonWinter = "inverno"
	SeasonSpring = "primavera"
	SeasonSummer = "verao"
	SeasonAutumn = "outono"
)

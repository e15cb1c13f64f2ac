package model

// EntityKind identifies one of the six finance collections mirrored from the
// remote finance service. The set is closed; recovery requests carrying any
// other value are rejected before the store is touched.
type EntityKind string

const (
	KindBilling         EntityKind = "billing"
	KindBudgetHistory   EntityKind = "budgetHistory"
	KindBudget          EntityKind = "budget"
	KindFinancialReport EntityKind = "financialReport"
	KindInsuranceClaim  EntityKind = "insuranceClaim"
	KindUserData        EntityKind = "userData"
)

// EntityInfo ties an entity kind to the field name the remote export payload
// uses for it and the display name written into audit log entries. The export
// names do not line up with the internal kinds (budgetingHistory vs
// budgetHistory, insuranceClaims vs insuranceClaim, user vs userData); that
// mismatch is part of the remote contract and is kept as an explicit table.
type EntityInfo struct {
	Kind        EntityKind
	ExportField string
	DisplayName string
}

var entityTable = [...]EntityInfo{
	{KindBilling, "billing", "Billing"},
	{KindBudgetHistory, "budgetingHistory", "Budget History"},
	{KindBudget, "budget", "Budget"},
	{KindFinancialReport, "financialReport", "Financial Report"},
	{KindInsuranceClaim, "insuranceClaims", "Insurance Claim"},
	{KindUserData, "user", "User"},
}

// Entities returns the six entity kinds in their fixed order.
func Entities() []EntityInfo {
	out := make([]EntityInfo, len(entityTable))
	copy(out, entityTable[:])
	return out
}

// KindFromString validates a caller-supplied model name. ok is false for
// anything outside the closed set.
func KindFromString(s string) (EntityKind, bool) {
	for _, e := range entityTable {
		if string(e.Kind) == s {
			return e.Kind, true
		}
	}
	return "", false
}

// Info returns the mapping row for the kind. Zero value for unknown kinds.
func (k EntityKind) Info() EntityInfo {
	for _, e := range entityTable {
		if e.Kind == k {
			return e
		}
	}
	return EntityInfo{}
}

// DisplayName returns the audit-log display name for the kind.
func (k EntityKind) DisplayName() string {
	return k.Info().DisplayName
}

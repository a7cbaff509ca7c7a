package models

// CatalogStatus is shared by products and workout plans.
type CatalogStatus string

const (
	StatusActive   CatalogStatus = "active"
	StatusInactive CatalogStatus = "inactive"
	StatusDraft    CatalogStatus = "draft"
	StatusArchived CatalogStatus = "archived"
)

// CatalogStatuses is the validate "in" list for CatalogStatus.
const CatalogStatuses = "active,inactive,draft,archived"

// ReviewTarget names the kind of entity a review belongs to.
type ReviewTarget string

const (
	TargetProduct ReviewTarget = "product"
	TargetPlan    ReviewTarget = "plan"
)

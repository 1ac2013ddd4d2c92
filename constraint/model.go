// Package constraint models authored business rules: subject-predicate-
// object triples grouped into categories. Rules are captured and listed
// for review; nothing evaluates them against live data.
package constraint

// ImpactLevel grades how severe a rule's subject matter is.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// Source records where a rule came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceAI     Source = "ai"
)

// Operator is the comparison in a rule condition.
type Operator string

const (
	OpGreater Operator = ">"
	OpLess    Operator = "<"
	OpEqual   Operator = "="
	OpChange  Operator = "CHANGE"
)

// RelationType is the predicate of a rule triple.
type RelationType string

const (
	RelationImpact  RelationType = "IMPACT"
	RelationTrigger RelationType = "TRIGGER"
	RelationQuery   RelationType = "QUERY"
)

// Logic is the structured subject-predicate-object form of a rule.
// SourceNodeID and TargetNodeID are optional; empty means "any node".
type Logic struct {
	SourceNodeID      string       `json:"sourceNodeId,omitempty"`
	Attribute         string       `json:"attribute,omitempty"`
	Operator          Operator     `json:"operator,omitempty"`
	Value             string       `json:"value,omitempty"`
	RelationType      RelationType `json:"relationType"`
	TargetNodeID      string       `json:"targetNodeId,omitempty"`
	ActionDescription string       `json:"actionDescription,omitempty"`
}

// Item is one authored rule. ID is globally unique across all categories
// and is the de-duplication key for upserts.
type Item struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	Enabled     bool        `json:"enabled"`
	ImpactLevel ImpactLevel `json:"impactLevel"`
	Formula     string      `json:"formula,omitempty"` // legacy free text
	Logic       *Logic      `json:"logic,omitempty"`
	Source      Source      `json:"source"`
}

// Category is a named rule grouping.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// CustomCategoryID is the reserved category that collects items not
// belonging anywhere else; created lazily on first use.
const CustomCategoryID = "custom_rules"

// CustomCategoryName is the fixed display name of the reserved category.
const CustomCategoryName = "知识库"

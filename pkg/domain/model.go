package domain

// ModelInfo identifies one OLAP model exposed by the data service.
type ModelInfo struct {
	ID          int    `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
}

// Member is a hierarchy member predicted as relevant to the user query.
type Member struct {
	Name      string `json:"name"`
	Alias     string `json:"alias"`
	Dimension string `json:"dimension"`
}

// Dimension is one categorical axis of a model.
type Dimension struct {
	ID             int    `json:"id"`
	Number         int    `json:"number"`
	Name           string `json:"name"`
	TypeDefinition string `json:"typeDefinition"`
}

// ModelDetails is a model together with its dimension metadata (members excluded).
type ModelDetails struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Dimensions []Dimension `json:"dimensions"`
}

// Dimension returns the dimension with the given name (case-insensitive).
func (m ModelDetails) Dimension(name string) (Dimension, bool) {
	for _, d := range m.Dimensions {
		if equalFold(d.Name, name) {
			return d, true
		}
	}
	return Dimension{}, false
}

func (m ModelDetails) clone() ModelDetails {
	m.Dimensions = cloneSlice(m.Dimensions)
	return m
}

// HierarchyMember is a node returned when walking a dimension hierarchy.
type HierarchyMember struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	NumChildren int    `json:"numChildren"`
}

// Role tags a message sent to the language model.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// QueryValidation reports the outcome of validating a generated query.
// A failed validation never aborts a run.
type QueryValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

package ports

import (
	"context"
	"encoding/json"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// DataService is the remote OLAP catalog (models, dimensions, hierarchies, search, validation).
type DataService interface {
	// ListModels returns every model visible to the credentials.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)

	// GetModel returns the dimensions of a model. The name is carried through
	// into the result since the dimensions endpoint does not return it.
	GetModel(ctx context.Context, modelID int, modelName string) (*domain.ModelDetails, error)

	// Children lists the direct children of a hierarchy member.
	// An empty memberID lists the top-level members of the dimension.
	Children(ctx context.Context, modelID, dimensionNumber int, memberID string) ([]domain.HierarchyMember, error)

	// SearchMembers runs a free-text member/attribute search inside one dimension.
	// The payload is returned undecoded.
	SearchMembers(ctx context.Context, modelID, dimensionID int, query string) (json.RawMessage, error)

	// ValidateQuery asks the service whether an MQL expression is well formed.
	ValidateQuery(ctx context.Context, modelID int, query string) (domain.QueryValidation, error)
}

package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Tool names understood by the invoker.
const (
	ListModels          = "list_models"
	GetModelInfo        = "get_model_info"
	GetTopLevelMembers  = "get_top_level_members"
	GetChildrenOfMember = "get_children_of_member"
	SearchMembers       = "search_members"
	ValidateMQL         = "validate_mql"
)

// Names lists every tool the workflow relies on.
var Names = []string{
	ListModels,
	GetModelInfo,
	GetTopLevelMembers,
	GetChildrenOfMember,
	SearchMembers,
	ValidateMQL,
}

type modelArgs struct {
	ModelID   int    `mapstructure:"model_id"`
	ModelName string `mapstructure:"model_name"`
}

type hierarchyArgs struct {
	ModelID         int    `mapstructure:"model_id"`
	DimensionNumber int    `mapstructure:"dimension_number"`
	MemberID        string `mapstructure:"member_id"`
}

type searchArgs struct {
	ModelID     int    `mapstructure:"model_id"`
	DimensionID int    `mapstructure:"dimension_id"`
	Query       string `mapstructure:"query"`
}

type validateArgs struct {
	ModelID int    `mapstructure:"model_id"`
	Query   string `mapstructure:"query"`
}

// NewCatalog binds the data-service operations to their tool names.
func NewCatalog(ds ports.DataService) *Registry {
	r := NewRegistry()

	r.Register(domain.Tool{
		Name:        ListModels,
		Description: "List all available models with their ids, names and descriptions.",
	}, func(ctx context.Context, _ map[string]any) (any, error) {
		return ds.ListModels(ctx)
	})

	r.Register(domain.Tool{
		Name:        GetModelInfo,
		Description: "Get the dimensions of a model (members and attributes excluded).",
	}, func(ctx context.Context, raw map[string]any) (any, error) {
		var args modelArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return ds.GetModel(ctx, args.ModelID, args.ModelName)
	})

	r.Register(domain.Tool{
		Name:        GetTopLevelMembers,
		Description: "List the top-level members of a dimension with id, name, alias and numChildren.",
	}, func(ctx context.Context, raw map[string]any) (any, error) {
		var args hierarchyArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return ds.Children(ctx, args.ModelID, args.DimensionNumber, "")
	})

	r.Register(domain.Tool{
		Name:        GetChildrenOfMember,
		Description: "List the child members of a member with id, name, alias and numChildren.",
	}, func(ctx context.Context, raw map[string]any) (any, error) {
		var args hierarchyArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		if args.MemberID == "" {
			return nil, fmt.Errorf("member_id is required")
		}
		return ds.Children(ctx, args.ModelID, args.DimensionNumber, args.MemberID)
	})

	r.Register(domain.Tool{
		Name:        SearchMembers,
		Description: "Search members and attributes of a dimension by name or alias.",
	}, func(ctx context.Context, raw map[string]any) (any, error) {
		var args searchArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return ds.SearchMembers(ctx, args.ModelID, args.DimensionID, args.Query)
	})

	r.Register(domain.Tool{
		Name:        ValidateMQL,
		Description: "Validate an MQL expression against a model.",
	}, func(ctx context.Context, raw map[string]any) (any, error) {
		var args validateArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		return ds.ValidateQuery(ctx, args.ModelID, args.Query)
	})

	return r
}

// decode maps loosely typed arguments (JSON numbers, numeric strings) onto a struct.
func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

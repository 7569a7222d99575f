package service

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"qbank/internal/config"
	"qbank/internal/domain"
	"qbank/internal/domain/services"
	"qbank/internal/treepath"
)

// nameRule rejects names the path codec or sibling matching could not
// handle cleanly: delimiter characters and surrounding whitespace.
var nameRule = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	if strings.Contains(name, treepath.Delimiter) {
		return fmt.Errorf("must not contain %q", treepath.Delimiter)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("must not have leading or trailing whitespace")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("must not be blank")
	}
	return nil
})

func validateCreateRequest(req *services.CreateNodeRequest) error {
	if req == nil {
		return fmt.Errorf("create request is nil: %w", domain.ErrValidation)
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxNodeNameLength),
			nameRule,
		),
		validation.Field(&req.Actor, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validateMoveRequest(req *services.MoveNodeRequest) error {
	if req == nil {
		return fmt.Errorf("move request is nil: %w", domain.ErrValidation)
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.NodeID, validation.Required),
		validation.Field(&req.Position, validation.Min(0)),
		validation.Field(&req.Actor, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxNodeNameLength),
		nameRule,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validateStrategy(strategy services.DeleteStrategy) error {
	if !strategy.Valid() {
		return fmt.Errorf("unknown delete strategy %q: %w", strategy, domain.ErrValidation)
	}
	return nil
}

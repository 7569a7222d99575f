package service

import (
	"context"

	"qbank/internal/domain/services"
)

// Bulk operations apply the single-item operation per element and
// collect per-item outcomes. They are explicitly best-effort: a failed
// element never rolls back its successful siblings, only each element's
// own steps are atomic. The context is honored between elements, never
// inside one.

// BulkCreate creates each requested node in order.
func (s *Service) BulkCreate(ctx context.Context, reqs []*services.CreateNodeRequest) *services.BulkResult {
	result := &services.BulkResult{}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			s.appendFailure(result, i, "", err)
			continue
		}
		node, err := s.Create(ctx, req)
		if err != nil {
			s.appendFailure(result, i, "", err)
			continue
		}
		result.Succeeded = append(result.Succeeded, node.ID)
	}
	s.logBulk("bulk create", result)
	return result
}

// BulkMove applies each move in order.
func (s *Service) BulkMove(ctx context.Context, reqs []*services.MoveNodeRequest) *services.BulkResult {
	result := &services.BulkResult{}
	for i, req := range reqs {
		nodeID := ""
		if req != nil {
			nodeID = req.NodeID
		}
		if err := ctx.Err(); err != nil {
			s.appendFailure(result, i, nodeID, err)
			continue
		}
		node, err := s.Move(ctx, req)
		if err != nil {
			s.appendFailure(result, i, nodeID, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, node.ID)
	}
	s.logBulk("bulk move", result)
	return result
}

// BulkDelete deletes each node in order with the same strategy.
func (s *Service) BulkDelete(ctx context.Context, nodeIDs []string, strategy services.DeleteStrategy, actor string) *services.BulkResult {
	result := &services.BulkResult{}
	for i, nodeID := range nodeIDs {
		if err := ctx.Err(); err != nil {
			s.appendFailure(result, i, nodeID, err)
			continue
		}
		if err := s.Delete(ctx, nodeID, strategy, actor); err != nil {
			s.appendFailure(result, i, nodeID, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, nodeID)
	}
	s.logBulk("bulk delete", result)
	return result
}

func (s *Service) appendFailure(result *services.BulkResult, index int, nodeID string, err error) {
	result.Failed = append(result.Failed, services.BulkError{
		Index:  index,
		NodeID: nodeID,
		Reason: err.Error(),
		Err:    err,
	})
}

func (s *Service) logBulk(op string, result *services.BulkResult) {
	s.logger.Info(op+" complete",
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
	)
}

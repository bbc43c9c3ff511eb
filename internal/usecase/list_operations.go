package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/i2y/oapiquery/pkg/lookup"
)

// ListOperationsUseCase lists the operations a document declares.
type ListOperationsUseCase struct {
	loader DocumentLoader
	logger *slog.Logger
}

// NewListOperationsUseCase creates a new ListOperationsUseCase.
func NewListOperationsUseCase(loader DocumentLoader, logger *slog.Logger) *ListOperationsUseCase {
	return &ListOperationsUseCase{
		loader: loader,
		logger: logger.With("usecase", "ListOperations"),
	}
}

// Execute loads the document and returns its operations sorted by path and
// method. A non-empty filter keeps operations whose path or operationId
// contains it.
func (uc *ListOperationsUseCase) Execute(ctx context.Context, src DocumentSource, filter string) ([]lookup.OperationInfo, error) {
	if src.Location == "" {
		return nil, ErrNoDocument
	}
	log := uc.logger.With(slog.String("source", src.Location))
	log.Debug("Listing operations")

	loaded, err := uc.loader.Load(ctx, src)
	if err != nil {
		log.Error("Failed to load document", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load document %s: %w", src.Location, err)
	}

	ops := loaded.Document.Operations()
	if filter != "" {
		kept := ops[:0]
		for _, op := range ops {
			if strings.Contains(op.Path, filter) || strings.Contains(op.OperationID, filter) {
				kept = append(kept, op)
			}
		}
		ops = kept
	}
	log.Debug("Listed operations", slog.Int("count", len(ops)))
	return ops, nil
}

package product

import (
	"go.uber.org/zap"
)

type Module struct {
	Service    *Service
	Controller *Controller
}

func NewModule(repo Repository, logger *zap.Logger) *Module {
	svc := NewService(repo, logger)
	uc := NewSearchUseCase(svc)
	return &Module{
		Service:    svc,
		Controller: NewController(uc, logger),
	}
}

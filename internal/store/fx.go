package store

import (
	"github.com/smallbiznis/trashforcoin/internal/store/repository"
	"github.com/smallbiznis/trashforcoin/internal/store/service"
	"go.uber.org/fx"
)

var Module = fx.Module("store.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package bin

import (
	"github.com/smallbiznis/trashforcoin/internal/bin/repository"
	"github.com/smallbiznis/trashforcoin/internal/bin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bin.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

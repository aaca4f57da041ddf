package report

import (
	"github.com/smallbiznis/trashforcoin/internal/report/repository"
	"github.com/smallbiznis/trashforcoin/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

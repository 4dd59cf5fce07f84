package insurer

import (
	"github.com/smallbiznis/tutorbase/internal/insurer/repository"
	"github.com/smallbiznis/tutorbase/internal/insurer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("insurer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package customerpolicy

import (
	"github.com/smallbiznis/tutorbase/internal/customerpolicy/repository"
	"github.com/smallbiznis/tutorbase/internal/customerpolicy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customerpolicy.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package policypayment

import (
	"github.com/smallbiznis/tutorbase/internal/policypayment/repository"
	"github.com/smallbiznis/tutorbase/internal/policypayment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("policypayment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

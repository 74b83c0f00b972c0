package main

import (
	"time"

	"go.uber.org/fx"

	"github.com/opskitchen/snapkeeper/internal/awsfx"
	"github.com/opskitchen/snapkeeper/internal/configfx"
	"github.com/opskitchen/snapkeeper/internal/domainfx"
	"github.com/opskitchen/snapkeeper/internal/loggerfx"
	"github.com/opskitchen/snapkeeper/internal/statusfx"
)

func main() {
	logger := loggerfx.Logger()

	app := fx.New(
		fx.StartTimeout(15*time.Second),
		fx.StopTimeout(15*time.Second),

		fx.Logger(logger),

		loggerfx.Module,
		configfx.Module,
		awsfx.Module,
		statusfx.Module,
		domainfx.Module,
	)

	app.Run()
}

package main

import (
	"github.com/corray333/backend-labs/orderview/internal/app"
	"github.com/corray333/backend-labs/orderview/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}

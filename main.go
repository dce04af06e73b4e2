package main

import (
	"github.com/oarkflow/stocksim/app/models"
	"github.com/oarkflow/stocksim/app/server"
	"github.com/oarkflow/stocksim/config"
	"github.com/oarkflow/stocksim/log"
)

func main() {
	config.InitConfig()
	log.SetLogging()
	models.InitDB()
	server.Run()
}

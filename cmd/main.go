// @title Clinic Portal API
// @version 1.0
// @description Contact form, accounts, doctors, availability and appointments for a healthcare practice.

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"clinic-portal/cmd/bootstrap"
	_ "clinic-portal/docs"

	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize application with all dependencies
	app, err := bootstrap.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	// Run the application
	app.Run()
}

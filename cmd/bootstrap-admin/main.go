// Command bootstrap-admin creates the first admin account, or any other one
// when the API is unreachable.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/danielnymberg/bokabuttle/internal/config"
	"github.com/danielnymberg/bokabuttle/internal/database"
	"github.com/danielnymberg/bokabuttle/internal/repository"
	"github.com/danielnymberg/bokabuttle/internal/service"
)

func main() {
	name := flag.String("name", "", "display name of the admin")
	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "password (or set ADMIN_PASSWORD)")
	migrate := flag.Bool("migrate", false, "apply the schema before creating the admin")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *name == "" || *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	svc := service.NewEventAdmin(service.Stores{
		Events:   repository.NewEventRepo(db),
		Sessions: repository.NewSessionRepo(db),
		Slots:    repository.NewSlotRepo(db),
		Admins:   repository.NewAdminRepo(db),
	}, cfg.BcryptCost, nil)

	id, err := svc.CreateAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	fmt.Printf("admin %d created for %s\n", id, *email)
}

// cmd/seedoperator/main.go — creates/updates a demo supervisor in the local store.
// Usage: go run cmd/seedoperator/main.go [pin]
package main

import (
	"fmt"
	"log"
	"os"

	"tillsync/internal/infra"
	"tillsync/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

func main() {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "tillsync.db"
	}
	pin := "1234"
	if len(os.Args) > 1 {
		pin = os.Args[1]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), 12)
	if err != nil {
		log.Fatalf("bcrypt error: %v", err)
	}

	db, err := infra.NewDatabase(path)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}

	user := model.User{
		ID:       uuid.New(),
		Username: "supervisor",
		FullName: "Demo Supervisor",
		Role:     model.RoleSupervisor,
		PinHash:  string(hash),
		Active:   true,
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"full_name", "role", "pin_hash", "active",
		}),
	}).Create(&user)
	if result.Error != nil {
		log.Fatalf("insert error: %v", result.Error)
	}
	fmt.Printf("supervisor '%s' created/updated with PIN '%s'\n", user.Username, pin)
}

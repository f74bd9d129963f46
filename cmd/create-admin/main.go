// Command-line tool to register an admin user and print an access token for it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/config"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/logger"
	"InternHub-backend/internal/model"
)

func main() {
	username := flag.String("username", "", "admin username")
	email := flag.String("email", "", "contact email (optional)")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	flag.Parse()

	if *username == "" {
		fmt.Print("Enter username: ")
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		*username = strings.TrimSpace(input)
	}
	if *username == "" {
		fmt.Println("Username is required.")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewDBInstance(cfg.DB, logger.Discard())
	if err != nil {
		fmt.Printf("Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", *username).Count(&count).Error; err != nil {
		fmt.Printf("Failed to look up username: %v\n", err)
		os.Exit(1)
	}
	if count > 0 {
		fmt.Println("Username already taken")
		os.Exit(1)
	}

	admin := model.User{Username: *username, Role: model.RoleAdmin}
	if e := strings.TrimSpace(*email); e != "" {
		admin.Email = &e
	}
	if err := db.Create(&admin).Error; err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	lifetime := cfg.AccessTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}
	token, err := auth.NewProvider(cfg.SecretKey, cfg.JwtIssuer, lifetime).GenerateToken(admin.ID)
	if err != nil {
		fmt.Printf("Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Admin account created successfully!")
	fmt.Println("======================================")
	fmt.Printf("ID:       %s\n", admin.ID)
	fmt.Printf("Username: %s\n", admin.Username)
	fmt.Printf("Expires:  %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
	fmt.Printf("Token:    %s\n", token)
	fmt.Println("======================================")
}

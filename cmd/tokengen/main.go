// Package main generates signed console tokens for local development against
// a stub backend. They use a dev signing key and will NOT work in production.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/models"
	"coopconsole/internal/normalize"
	"coopconsole/internal/storage"
)

const (
	// Dev signing key; set COOPCONSOLE_JWT_VERIFY_KEY to the same value so
	// the console verifies what this tool signs.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultTokenTTL = 8 * time.Hour
)

type tokenOutput struct {
	Token     string         `json:"token"`
	ExpiresIn string         `json:"expires_in"`
	Claims    map[string]any `json:"claims"`
}

func main() {
	var (
		role          = pflag.String("role", string(models.RoleCooperativeAdmin), "COOPERATIVE_ADMIN or ASSOCIATION_ADMIN")
		userID        = pflag.String("user-id", "", "user id. Generated if empty.")
		firstName     = pflag.String("first-name", "Dev", "first name")
		lastName      = pflag.String("last-name", "Admin", "last name")
		email         = pflag.String("email", "", "email")
		phone         = pflag.String("phone", "", "phone number")
		associationID = pflag.String("association-id", "", "association id (association admins)")
		cooperativeID = pflag.String("cooperative-id", "", "cooperative id (cooperative admins)")
		ttl           = pflag.Duration("ttl", defaultTokenTTL, "token time-to-live")
		key           = pflag.String("key", devSigningKey, "HS256 signing key")
		jsonOutput    = pflag.Bool("json", false, "output as JSON")
		seedPath      = pflag.String("seed", "", "also write the token into this credential file")
	)
	pflag.Parse()

	parsed := normalize.ParseRole(*role)
	if !parsed.Valid() {
		fmt.Fprintf(os.Stderr, "Unknown role %q: use COOPERATIVE_ADMIN or ASSOCIATION_ADMIN\n", *role)
		os.Exit(1)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}

	claims := map[string]any{
		"id":        *userID,
		"role":      string(parsed),
		"firstName": *firstName,
		"lastName":  *lastName,
	}
	optional := map[string]string{
		"email":         *email,
		"phoneNumber":   *phone,
		"associationId": *associationID,
		"cooperativeId": *cooperativeID,
	}
	for k, v := range optional {
		if v = strings.TrimSpace(v); v != "" {
			claims[k] = v
		}
	}

	token, err := jwttoken.NewSigner(*key, nil).Issue(claims, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *seedPath != "" {
		err := storage.NewFile(*seedPath).SetMany(map[storage.Key]string{
			storage.KeyAuthToken:     token,
			storage.KeyAssociationID: *associationID,
			storage.KeyCooperativeID: *cooperativeID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding %s: %v\n", *seedPath, err)
			os.Exit(1)
		}
	}

	if *jsonOutput {
		printJSON(tokenOutput{Token: token, ExpiresIn: ttl.String(), Claims: claims})
		return
	}

	fmt.Println("Console Token (JWT)")
	fmt.Println("===================")
	fmt.Printf("Role:        %s\n", parsed)
	fmt.Printf("User ID:     %s\n", *userID)
	fmt.Printf("Expires In:  %s\n", *ttl)
	if *associationID != "" {
		fmt.Printf("Association: %s\n", *associationID)
	}
	if *cooperativeID != "" {
		fmt.Printf("Cooperative: %s\n", *cooperativeID)
	}
	if *seedPath != "" {
		fmt.Printf("Seeded:      %s\n", *seedPath)
	}
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

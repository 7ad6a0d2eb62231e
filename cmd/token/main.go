// Command token mints a bearer token for local testing of the hub.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"listing-chat/auth"
	"listing-chat/domain"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type tokenConfig struct {
	JwtSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
}

func main() {
	user := flag.String("user", "", "Subject id written in the token")
	role := flag.String("role", string(domain.RoleInquirer), "inquirer or owner (student/landlord accepted)")
	ttl := flag.Duration("ttl", 0, "Token lifetime, AUTH_TOKEN_DURATION when zero")
	flag.Parse()

	if lo.FromPtr(user) == "" {
		log.Fatal("-user is required")
	}

	_ = godotenv.Load()
	var config tokenConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	parsed, err := domain.ParseRole(lo.FromPtr(role))
	if err != nil {
		log.Fatalf("Invalid role %q: %v", *role, err)
	}

	duration := lo.Ternary(*ttl > 0, *ttl, config.AuthTokenDuration)
	token, err := auth.GenerateToken([]byte(config.JwtSecret), *user, parsed, duration)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

package main

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"projectboard/mockapi"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	secret := os.Getenv("MOCKAPI_JWT_SECRET")
	if secret == "" {
		log.Fatal("missing MOCKAPI_JWT_SECRET")
	}
	ttl := 24 * time.Hour
	if v := os.Getenv("MOCKAPI_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid MOCKAPI_TOKEN_TTL: %v", err)
		}
		ttl = d
	}
	cost := 0
	if v := os.Getenv("MOCKAPI_BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			log.Fatalf("invalid MOCKAPI_BCRYPT_COST: %q", v)
		}
		cost = n
	}

	listenAddr := ":4000"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e := mockapi.New(mockapi.NewBoard(cost), mockapi.NewAuth(secret, ttl), log.StandardLogger())
	log.WithField("addr", listenAddr).Info("mock api listening")
	e.Logger.Fatal(e.Start(listenAddr))
}

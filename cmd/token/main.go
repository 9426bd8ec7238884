// Command token mints a bearer token for the ingestion API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	jwtmw "ohlcv_ingestor/internal/platform/jwt"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	scopes := flag.String("scopes", jwtmw.ScopeIngest, "comma-separated scopes")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	tok, err := jwtmw.NewGenerator(secret, *ttl).GenerateToken(*subject, strings.Split(*scopes, ","))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

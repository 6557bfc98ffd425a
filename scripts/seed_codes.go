package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// Seeds a running codegate instance with freshly minted download codes.
//
// Usage: go run scripts/seed_codes.go -addr http://localhost:8080 -count 10
func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the codegate server")
	count := flag.Int("count", 10, "number of codes to mint")
	flag.Parse()

	for i := 0; i < *count; i++ {
		code := uuid.New().String()

		resp, err := http.Get(fmt.Sprintf("%s/add_code=%s", *addr, code))
		if err != nil {
			log.Fatalf("failed to add code: %v", err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatalf("server rejected code %s: %d %s", code, resp.StatusCode, string(body))
		}

		fmt.Println(code)
	}

	fmt.Printf("Added %d codes\n", *count)
}

//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the catalog admin API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> [copies]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<id>  COPIES=<n>  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines all creating a copy (BookInstance) of the same book simultaneously.
//  2. Prints how many creations succeeded.
//  3. Lists the book's copies through the admin and verifies every created id is present exactly once.
//
// Prerequisites:
//   - Server must be running with the schema migrated.
//   - The book must exist.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultServerAddr = "http://localhost:8080"
	defaultCopies     = 50
)

type createResult struct {
	Index      int
	ID         string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	copies := defaultCopies
	if v := os.Getenv("COPIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			log.Fatalf("COPIES must be a positive integer, got %q", v)
		}
		copies = n
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			log.Fatalf("copies must be a positive integer, got %q", args[1])
		}
		copies = n
	}

	book, err := strconv.ParseInt(bookID, 10, 64)
	if err != nil {
		log.Fatal("Usage: BOOK_ID=<id> COPIES=<n> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> [copies]")
	}

	fmt.Printf("=== Catalog Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %d\n", book)
	fmt.Printf("Copies : %d\n\n", copies)

	results := make([]createResult, copies)
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i := 0; i < copies; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = createCopy(serverAddr, book, idx)
		}(i)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")

	created := make(map[string]int)
	var failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] copy=%-4d err=%v\n", r.Index, r.Err)
		case r.StatusCode != http.StatusCreated:
			failures++
			fmt.Printf("  [FAIL] copy=%-4d status=%d\n", r.Index, r.StatusCode)
		default:
			created[r.ID]++
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Created  : %d\n", len(created))
	fmt.Printf("Failures : %d\n", failures)

	fmt.Println("\n--- Invariant Check ---")
	duplicates := 0
	for id, n := range created {
		if n > 1 {
			duplicates++
			fmt.Printf("  [DUP ] id=%s returned %d times\n", id, n)
		}
	}

	listed, err := listCopies(serverAddr, book)
	if err != nil {
		log.Fatalf("listing copies: %v", err)
	}
	missing := 0
	for id := range created {
		if listed[id] != 1 {
			missing++
			fmt.Printf("  [MISS] id=%s listed %d times\n", id, listed[id])
		}
	}
	fmt.Printf("Duplicate ids : %d\n", duplicates)
	fmt.Printf("Unlisted ids  : %d\n", missing)

	if failures > 0 || duplicates > 0 || missing > 0 {
		fmt.Printf("\n[WARNING] invariant violated or requests failed; check server logs for details.\n")
		os.Exit(1)
	}
}

// createCopy sends POST /admin/catalog/bookinstance/ and returns the id of the new copy.
func createCopy(serverAddr string, bookID int64, idx int) createResult {
	url := serverAddr + "/admin/catalog/bookinstance/"
	body := fmt.Sprintf(`{"book":%d,"imprint":"Concurrency run #%d"}`, bookID, idx)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return createResult{Index: idx, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return createResult{Index: idx, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}
	return createResult{Index: idx, ID: parsed.Key, StatusCode: resp.StatusCode}
}

// listCopies counts the copies of a book shown on the book's change form.
func listCopies(serverAddr string, bookID int64) (map[string]int, error) {
	url := fmt.Sprintf("%s/admin/catalog/book/%d/", serverAddr, bookID)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var form struct {
		Inlines []struct {
			Rows []struct {
				Key string `json:"key"`
			} `json:"rows"`
		} `json:"inlines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&form); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, group := range form.Inlines {
		for _, row := range group.Rows {
			out[row.Key]++
		}
	}
	return out, nil
}

//go:build ignore
// +build ignore

// Command concurrency_test races borrow requests for one book against a
// running server and exits non-zero if more than one of them is granted.
//
//	BOOK_ID=b1 MEMBER_IDS=m1,m2,m3 TOKEN=$(go run ./cmd token) go run ./scripts/concurrency_test.go
//	go run ./scripts/concurrency_test.go b1 m1 m2 m3
//
// The book should start on the shelf with an empty queue. SERVER_ADDR
// overrides http://localhost:8080.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	MemberID   string
	OK         bool
	Reason     string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	token := os.Getenv("TOKEN")

	bookID := os.Getenv("BOOK_ID")
	var memberIDs []string
	if env := os.Getenv("MEMBER_IDS"); env != "" {
		memberIDs = strings.Split(env, ",")
	}

	// Positional arguments win over the environment.
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		memberIDs = args[1:]
	}

	if bookID == "" || len(memberIDs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: concurrency_test.go <book_id> <member_id> [member_id ...]")
		os.Exit(2)
	}

	fmt.Printf("racing %d borrows of %s on %s\n", len(memberIDs), bookID, serverAddr)

	results := make([]borrowResult, len(memberIDs))
	var wg sync.WaitGroup

	gate := make(chan struct{})

	for i, mid := range memberIDs {
		wg.Add(1)
		go func(idx int, memberID string) {
			defer wg.Done()
			<-gate
			results[idx] = attemptBorrow(serverAddr, token, bookID, strings.TrimSpace(memberID))
		}(i, mid)
	}

	close(gate)
	wg.Wait()

	var borrowed, rejected, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] member=%-10s err=%v\n", r.MemberID, r.Err)
		case r.OK:
			borrowed++
			fmt.Printf("  [LOAN] member=%-10s status=%d\n", r.MemberID, r.StatusCode)
		default:
			rejected++
			fmt.Printf("  [REJ ] member=%-10s status=%d reason=%s\n", r.MemberID, r.StatusCode, r.Reason)
		}
	}

	fmt.Printf("\nborrowed=%d rejected=%d errors=%d\n", borrowed, rejected, failures)
	if borrowed > 1 {
		fmt.Printf("FAIL: %s granted to %d members\n", bookID, borrowed)
		os.Exit(1)
	}
	if failures > 0 {
		os.Exit(1)
	}
	fmt.Printf("ok: %s has at most one holder\n", bookID)
}

// attemptBorrow posts one borrow request and decodes its result.
func attemptBorrow(serverAddr, token, bookID, memberID string) borrowResult {
	body := fmt.Sprintf(`{"bookId":%q,"memberId":%q}`, bookID, memberID)
	req, err := http.NewRequest(http.MethodPost, serverAddr+"/api/borrow", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{MemberID: memberID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{MemberID: memberID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed struct {
		OK     bool    `json:"ok"`
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || resp.StatusCode != http.StatusOK {
		return borrowResult{MemberID: memberID, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", raw)}
	}

	res := borrowResult{MemberID: memberID, OK: parsed.OK, StatusCode: resp.StatusCode}
	if parsed.Reason != nil {
		res.Reason = *parsed.Reason
	}
	return res
}

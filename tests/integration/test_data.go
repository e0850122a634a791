package integration

import (
	"fmt"
	"time"
)

// TestUserCredentials generates unique test user credentials using timestamp
func TestUserCredentials(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

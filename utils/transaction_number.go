package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mu sync.Mutex
var seededRand *rand.Rand

func init() {
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GenerateTransactionNumber produces a merchant-side transaction number.
// The token space is small, so callers must check uniqueness against the
// store and retry on collision.
func GenerateTransactionNumber() string {
	mu.Lock()
	defer mu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := seededRand.Intn(900) + 100

	return fmt.Sprintf("CCA-%06d%03d", nanoPart, randPart)
}

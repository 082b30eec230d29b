package utils

import (
	"regexp"
	"testing"
)

func TestGenerateTransactionNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^CCA-\d{9}$`)
	for i := 0; i < 100; i++ {
		n := GenerateTransactionNumber()
		if !re.MatchString(n) {
			t.Fatalf("unexpected number format: %q", n)
		}
	}
}

func TestGenerateTransactionNumberConcurrent(t *testing.T) {
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 200; j++ {
				_ = GenerateTransactionNumber()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

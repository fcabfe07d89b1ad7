package broker

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The sweeper joins its loop goroutine on Stop, so nothing may leak.
	goleak.VerifyTestMain(m)
}

package config

import (
	"testing"

	"go.viam.com/fakemotor/testutils"
)

func TestMain(m *testing.M) {
	testutils.VerifyTestMain(m)
}

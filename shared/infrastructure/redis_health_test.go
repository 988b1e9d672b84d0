package infrastructure

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	checker := NewRedisHealthChecker(mr.Addr(), "", 0)
	defer checker.Close()

	assert.Equal(t, "redis", checker.Name())
	assert.NoError(t, checker.Check(context.Background()))

	mr.Close()
	assert.Error(t, checker.Check(context.Background()))
}

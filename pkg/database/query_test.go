package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPaginationClause(t *testing.T) {
	assert.Equal(t, " LIMIT 50 OFFSET 0", BuildPaginationClause(0, -5))
	assert.Equal(t, " LIMIT 1000 OFFSET 20", BuildPaginationClause(5000, 20))
	assert.Equal(t, " LIMIT 10 OFFSET 30", BuildPaginationClause(10, 30))
}

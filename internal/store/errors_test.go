package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFallsBackToMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"UNIQUE constraint failed: nodes.id", ErrDuplicate},
		{"FOREIGN KEY constraint failed", ErrForeignKey},
		{"database is locked", nil},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(errors.New(tt.msg)))
		})
	}
}

func TestDatabaseErrorMessage(t *testing.T) {
	err := &DatabaseError{Op: "insert edge", Key: "a->b", Kind: ErrCycle}
	assert.Equal(t, `insert edge "a->b": would create circular reference`, err.Error())
	assert.True(t, IsConstraint(err))

	cause := errors.New("disk I/O error")
	err = &DatabaseError{Op: "get nodes", Err: cause}
	assert.Equal(t, "get nodes: disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsConstraint(err))
}

//go:build !gocv
// +build !gocv

package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pantry-bot/internal/domain/entity"
)

func TestPreprocessorStub_PassesThrough(t *testing.T) {
	p := NewPreprocessor(0)
	require.Equal(t, DefaultMaxSide, p.MaxSide)

	out, err := p.Prepare([]byte("jpeg"))
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg"), out)

	_, err = p.Prepare(nil)
	require.ErrorIs(t, err, entity.ErrEmptyImage)
}

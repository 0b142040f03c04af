package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageSequence(t *testing.T) {
	next, ok := StagePressing.Next()
	require.True(t, ok)
	assert.Equal(t, StageFermenting, next)

	next, ok = StageFermenting.Next()
	require.True(t, ok)
	assert.Equal(t, StageAging, next)

	next, ok = StageAging.Next()
	require.True(t, ok)
	assert.Equal(t, StageBottled, next)
}

func TestBottledIsTerminal(t *testing.T) {
	_, ok := StageBottled.Next()
	assert.False(t, ok)
	assert.True(t, StageBottled.Terminal())

	assert.False(t, StagePressing.Terminal())
	assert.False(t, StageFermenting.Terminal())
	assert.False(t, StageAging.Terminal())
}

func TestStageValid(t *testing.T) {
	for _, s := range []Stage{StagePressing, StageFermenting, StageAging, StageBottled} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Stage("carbonating").Valid())
	assert.False(t, Stage("").Valid())
}

func TestPackagingFormatValid(t *testing.T) {
	for _, f := range []PackagingFormat{FormatBottle, FormatCan, FormatKeg, FormatBagInBox, FormatGrowler, FormatOther} {
		assert.True(t, f.Valid(), string(f))
	}
	assert.False(t, PackagingFormat("barrel").Valid())
}

func TestTeamSizeValid(t *testing.T) {
	assert.True(t, TeamSizeSmall.Valid())
	assert.True(t, TeamSizeMedium.Valid())
	assert.True(t, TeamSizeLarge.Valid())
	assert.False(t, TeamSize("huge").Valid())
}

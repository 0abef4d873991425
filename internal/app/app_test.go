package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/battlestudy/internal/config"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

func TestRulesFromConfig(t *testing.T) {
	rules := rulesFrom(config.Game{
		EasyTimeout: 30 * time.Second, EasyWin: 5, EasyLose: -2,
		MediumTimeout: 2 * time.Minute, MediumWin: 20, MediumLose: -10,
		HardTimeout: 4 * time.Minute, HardWin: 40, HardLose: -30,
	})

	require.Len(t, rules, 3)
	easy, ok := rules.For(question.DifficultyEasy)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, easy.Timeout)
	assert.Equal(t, -2, easy.LoseDelta)

	hard, _ := rules.For(question.DifficultyHard)
	assert.Equal(t, 40, hard.WinDelta)
	assert.Equal(t, 4*time.Minute, hard.Timeout)
}

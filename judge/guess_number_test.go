package judge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOracleSecretCommitRoundTrip(t *testing.T) {
	s, err := GenerateOracleSecret(MaxGuessDefault)
	require.NoError(t, err)

	commitment := s.Commitment()
	assert.True(t, VerifyOracleSecret(s, commitment))

	tampered := s
	tampered.Secret++
	assert.False(t, VerifyOracleSecret(tampered, commitment))
}

func TestGenerateOracleSecretWithinRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := GenerateOracleSecret(9)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.Secret, uint8(9))
	}
}

func TestJudgeGuessNumber(t *testing.T) {
	secret := OracleSecret{Secret: 50}
	assert.Equal(t, AWins, JudgeGuessNumber(49, 60, secret))
	assert.Equal(t, BWins, JudgeGuessNumber(10, 51, secret))
	assert.Equal(t, Draw, JudgeGuessNumber(45, 55, secret))
	assert.Equal(t, Draw, JudgeGuessNumber(50, 50, secret))
}

func TestValidateActionGuessNumberDefaultRange(t *testing.T) {
	assert.NoError(t, ValidateAction(GuessNumber, Action{GuessNumber: 99}))
	assert.Error(t, ValidateAction(GuessNumber, Action{GuessNumber: 100}))
}

func TestValidateActionRangeCustom(t *testing.T) {
	assert.NoError(t, ValidateActionRange(GuessNumber, Action{GuessNumber: 9}, 9))
	assert.Error(t, ValidateActionRange(GuessNumber, Action{GuessNumber: 10}, 9))
}

func TestKindRequiresOracleSecret(t *testing.T) {
	assert.False(t, RockPaperScissors.RequiresOracleSecret())
	assert.True(t, GuessNumber.RequiresOracleSecret())
}

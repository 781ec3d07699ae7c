package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyphertext/internal/chat/command"
	domaintypes "cyphertext/internal/domain/types"
)

func TestParse(t *testing.T) {
	cmd, ok := command.Parse("  #POLL Lunch?|Pizza|Sushi")
	require.True(t, ok)
	assert.Equal(t, "poll", cmd.Name)
	assert.Equal(t, []string{"Lunch?|Pizza|Sushi"}, cmd.Args)

	_, ok = command.Parse("hello #poll")
	assert.False(t, ok)
	_, ok = command.Parse("#")
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		line string
		want domaintypes.Payload
	}{
		{
			line: "#poll Where to? | Beach | Hills |",
			want: domaintypes.Payload{Kind: domaintypes.PayloadPoll, Question: "Where to?", Options: []string{"Beach", "Hills"}},
		},
		{
			line: "#market Will it rain?",
			want: domaintypes.Payload{Kind: domaintypes.PayloadMarket, Question: "Will it rain?", Options: []string{"Yes", "No"}},
		},
		{
			line: "#flip 0.5",
			want: domaintypes.Payload{Kind: domaintypes.PayloadGame, Game: "coinflip", Stake: 0.5, Token: "ETH"},
		},
		{
			line: "#flip 2 usdc",
			want: domaintypes.Payload{Kind: domaintypes.PayloadGame, Game: "coinflip", Stake: 2, Token: "USDC"},
		},
		{
			line: "#swap 10 sol",
			want: domaintypes.Payload{Kind: domaintypes.PayloadTrade, Action: "swap", Amount: 10, Token: "SOL"},
		},
		{
			line: "#buy eth 0.1",
			want: domaintypes.Payload{Kind: domaintypes.PayloadTrade, Action: "buy", Amount: 0.1, Token: "ETH"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, ok := command.Parse(tt.line)
			require.True(t, ok)
			got, err := command.Build(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	for line, want := range map[string]error{
		"#poll Only a question|A": command.ErrUsage,
		"#flip":                   command.ErrUsage,
		"#flip -1":                command.ErrUsage,
		"#swap 10":                command.ErrUsage,
		"#buy lots ETH":           command.ErrUsage,
		"#pin 42":                 command.ErrUnknownCommand,
	} {
		cmd, ok := command.Parse(line)
		require.True(t, ok, line)
		_, err := command.Build(cmd)
		assert.ErrorIs(t, err, want, line)
	}
}

func TestComposeAndDescribe(t *testing.T) {
	text, err := command.Compose("just chatting")
	require.NoError(t, err)
	assert.Equal(t, "just chatting", text)
	assert.Equal(t, "just chatting", command.Describe(text))

	text, err = command.Compose("#poll Tea or coffee?|Tea|Coffee")
	require.NoError(t, err)
	assert.Equal(t, domaintypes.PayloadPoll, domaintypes.DecodePayload(text).Kind)
	assert.Equal(t, "[poll] Tea or coffee? (Tea / Coffee)", command.Describe(text))

	text, err = command.Compose("#swap 1.5 eth")
	require.NoError(t, err)
	assert.Equal(t, "[swap] 1.5 ETH", command.Describe(text))

	_, err = command.Compose("#dance")
	assert.ErrorIs(t, err, command.ErrUnknownCommand)
}

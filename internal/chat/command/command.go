// Package command turns '#' chat commands into structured payloads.
//
//	#poll Question|Option A|Option B
//	#flip <stake> [token]
//	#market Question|Yes|No
//	#swap <amount> <token>   (#buy is an alias; either argument order)
//
// The payload is encoded into the message text and sealed like any other
// message. Nothing here settles games, markets or trades.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

const (
	defaultToken = "ETH"
	coinflipGame = "coinflip"
)

var (
	// ErrUnknownCommand is returned for a '#' word no handler knows.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a known command has bad arguments.
	ErrUsage = errors.New("bad command arguments")
)

// Command is a parsed '#' line.
type Command struct {
	Name string
	Args []string
	Raw  string
}

// Parse splits a '#' line into its name and arguments. ok is false when
// text is not a command.
func Parse(text string) (Command, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(text), "#")
	if !ok {
		return Command{}, false
	}
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(parts[0]), Args: parts[1:], Raw: text}, true
}

// Build maps a command to its payload.
func Build(cmd Command) (domain.Payload, error) {
	switch cmd.Name {
	case "poll":
		q, opts, err := questionAndOptions(cmd.Args, 2)
		if err != nil {
			return domain.Payload{}, fmt.Errorf("#poll Question|A|B: %w", err)
		}
		return domain.Payload{Kind: domaintypes.PayloadPoll, Question: q, Options: opts}, nil

	case "market":
		q, opts, err := questionAndOptions(cmd.Args, 0)
		if err != nil {
			return domain.Payload{}, fmt.Errorf("#market Question|A|B: %w", err)
		}
		if len(opts) < 2 {
			opts = []string{"Yes", "No"}
		}
		return domain.Payload{Kind: domaintypes.PayloadMarket, Question: q, Options: opts}, nil

	case "flip":
		if len(cmd.Args) < 1 || len(cmd.Args) > 2 {
			return domain.Payload{}, fmt.Errorf("#flip <stake> [token]: %w", ErrUsage)
		}
		stake, err := positive(cmd.Args[0])
		if err != nil {
			return domain.Payload{}, fmt.Errorf("#flip <stake> [token]: %w", err)
		}
		token := defaultToken
		if len(cmd.Args) == 2 {
			token = strings.ToUpper(cmd.Args[1])
		}
		return domain.Payload{Kind: domaintypes.PayloadGame, Game: coinflipGame, Stake: stake, Token: token}, nil

	case "swap", "buy":
		if len(cmd.Args) != 2 {
			return domain.Payload{}, fmt.Errorf("#%s <amount> <token>: %w", cmd.Name, ErrUsage)
		}
		amountArg, tokenArg := cmd.Args[0], cmd.Args[1]
		if _, err := strconv.ParseFloat(amountArg, 64); err != nil {
			amountArg, tokenArg = tokenArg, amountArg
		}
		amount, err := positive(amountArg)
		if err != nil {
			return domain.Payload{}, fmt.Errorf("#%s <amount> <token>: %w", cmd.Name, err)
		}
		return domain.Payload{Kind: domaintypes.PayloadTrade, Action: cmd.Name, Amount: amount, Token: strings.ToUpper(tokenArg)}, nil
	}
	return domain.Payload{}, fmt.Errorf("#%s: %w", cmd.Name, ErrUnknownCommand)
}

// Compose returns the message text for a line typed by the user. Lines
// that are not commands are sent as they are.
func Compose(line string) (string, error) {
	cmd, ok := Parse(line)
	if !ok {
		return line, nil
	}
	p, err := Build(cmd)
	if err != nil {
		return "", err
	}
	return domaintypes.EncodePayload(p)
}

// Describe renders message text for a terminal.
func Describe(text string) string {
	p := domaintypes.DecodePayload(text)
	switch p.Kind {
	case domaintypes.PayloadPoll:
		return fmt.Sprintf("[poll] %s (%s)", p.Question, strings.Join(p.Options, " / "))
	case domaintypes.PayloadMarket:
		return fmt.Sprintf("[market] %s (%s)", p.Question, strings.Join(p.Options, " / "))
	case domaintypes.PayloadGame:
		return fmt.Sprintf("[%s] stake %s %s", p.Game, formatAmount(p.Stake), p.Token)
	case domaintypes.PayloadTrade:
		return fmt.Sprintf("[%s] %s %s", p.Action, formatAmount(p.Amount), p.Token)
	case domaintypes.PayloadImage, domaintypes.PayloadAudio:
		return fmt.Sprintf("[%s] %s", p.Kind, p.MediaURL)
	default:
		return p.Text
	}
}

func questionAndOptions(args []string, minOptions int) (string, []string, error) {
	var parts []string
	for _, s := range strings.Split(strings.Join(args, " "), "|") {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 || len(parts)-1 < minOptions {
		return "", nil, ErrUsage
	}
	return parts[0], parts[1:], nil
}

func positive(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, ErrUsage
	}
	return v, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

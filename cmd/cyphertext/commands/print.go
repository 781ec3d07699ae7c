package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"cyphertext/internal/chat/command"
	"cyphertext/internal/domain"
)

var (
	selfLabel = color.New(color.FgGreen, color.Bold)
	peerLabel = color.New(color.FgCyan, color.Bold)
	dim       = color.New(color.Faint)
)

func printRecord(w io.Writer, r domain.MessageRecord) {
	label := peerLabel
	if r.SentByLocalUser {
		label = selfLabel
	}
	ts := time.UnixMilli(r.Timestamp).Format("15:04")
	fmt.Fprintf(w, "%s %s %s\n", dim.Sprint(ts), label.Sprintf("%-6s", r.SenderLabel), command.Describe(r.Text))
}

// startSpinner shows progress on stderr until the returned func is called.
func startSpinner(message string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

// Command client is a minimal demonstration client for the match protocol.
// With one argument it creates a game and prints the join code; with two it
// joins an existing game by code. Either way it then plays out the match
// with fixed wagers, printing each turn's result.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/m-mueller678/as4/internal/clientsession"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <connect address> [join code]\n", os.Args[0])
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(addr string, rest []string) error {
	session, err := clientsession.Dial(addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer session.Close()

	var playing *clientsession.PlayingSession
	if len(rest) > 0 {
		code, err := strconv.ParseUint(rest[0], 10, 32)
		if err != nil {
			return fmt.Errorf("parsing join code %q: %w", rest[0], err)
		}
		playing, err = session.Join(uint32(code))
		if err != nil {
			return fmt.Errorf("joining game %d: %w", code, err)
		}
		fmt.Printf("joined game %d\n", code)
	} else {
		waiting, err := session.Create()
		if err != nil {
			return fmt.Errorf("creating game: %w", err)
		}
		fmt.Printf("created game, join code: %d\n", waiting.Code())
		playing, err = waiting.Wait()
		if err != nil {
			return fmt.Errorf("waiting for partner: %w", err)
		}
		fmt.Println("partner joined, game starting")
	}

	rules := playing.Rules()
	fmt.Printf("playing %d turns, %d points each\n", rules.NumberTurns, rules.TotalPoints)

	const fixedWager = 10
	for turn := uint32(1); ; turn++ {
		// Once every turn has been submitted, only EndOfGame (possibly
		// preceded by nothing further from us) remains to arrive; stop
		// sending moves and just wait for it.
		if uint32(len(playing.Guesses())) < playing.MaxTurns() {
			if err := playing.Move(fixedWager); err != nil {
				return fmt.Errorf("submitting move: %w", err)
			}
		}

		outcome, err := playing.WaitResult()
		if err != nil {
			if errors.Is(err, clientsession.ErrConnectionLost) {
				fmt.Println("partner disconnected")
				return nil
			}
			return fmt.Errorf("awaiting result: %w", err)
		}
		if outcome.Over {
			fmt.Println("game over")
			return nil
		}
		fmt.Printf("turn %d: %s\n", turn, describeCmp(outcome.Cmp))
	}
}

func describeCmp(cmp int8) string {
	switch {
	case cmp > 0:
		return "you wagered more"
	case cmp < 0:
		return "partner wagered more"
	default:
		return "tied"
	}
}

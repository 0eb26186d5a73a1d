package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/FinDocHub/models"
)

// runInteractiveMode starts the menu-driven dashboard. The config file is
// watched for the whole session.
func runInteractiveMode(ctx context.Context, opts *globalOptions, out io.Writer) error {
	s, err := openSession(opts, out, true)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintln(out, DisplayWelcomeBanner())
	fmt.Fprintf(out, "Service: %s   Config: %s\n\n", s.Config().APIBaseURL, s.ConfigPath())

	for {
		if ctx.Err() != nil {
			return nil
		}

		action, err := PromptForAction()
		if err != nil {
			return promptExit(out, err)
		}
		if action == ActionExit {
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		}

		if err := s.runAction(ctx, action); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				fmt.Fprintln(out)
				continue
			}
			if !shownInPanel(err) {
				fmt.Fprintln(out, failedStyle.Render("❌ "+describeError(err)))
			}
		}

		again, err := PromptContinue()
		if err != nil {
			return promptExit(out, err)
		}
		if !again {
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		}
	}
}

func (s *Session) runAction(ctx context.Context, action Action) error {
	switch action {
	case ActionAsk:
		question, err := PromptForQuestion()
		if err != nil {
			return err
		}
		return s.Run(ctx, models.AskRequest{Question: question})

	case ActionSentiment:
		text, err := PromptForText()
		if err != nil {
			return err
		}
		return s.Run(ctx, models.SentimentRequest{Text: text})

	case ActionStock:
		symbol, err := PromptForTicker("Stock symbol:")
		if err != nil {
			return err
		}
		period, err := PromptForPeriod(s.Config().DefaultPeriod)
		if err != nil {
			return err
		}
		return s.Run(ctx, models.StockAnalyzeRequest{Symbol: symbol, Period: period})

	case ActionCompare:
		first, err := PromptForTicker("First stock symbol:")
		if err != nil {
			return err
		}
		second, err := PromptForTicker("Second stock symbol:")
		if err != nil {
			return err
		}
		period, err := PromptForPeriod(s.Config().DefaultPeriod)
		if err != nil {
			return err
		}
		return s.Run(ctx, models.StockCompareRequest{Symbol1: first, Symbol2: second, Period: period})

	case ActionROI:
		in, err := PromptForROIInputs(s.orch.ROI().Inputs)
		if err != nil {
			return err
		}
		return s.ROI(in)

	case ActionStatus:
		return s.Status(ctx)

	case ActionHistory:
		return s.PrintHistory(ctx, models.HistoryParams{Limit: 10})

	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// shownInPanel reports whether err already appears in a rendered slot panel.
func shownInPanel(err error) bool {
	switch models.KindOf(err) {
	case models.KindNetwork, models.KindTimeout, models.KindServiceRejected, models.KindMalformed:
		return true
	}
	return false
}

func promptExit(out io.Writer, err error) error {
	if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
		fmt.Fprintln(out, "👋 Goodbye!")
		return nil
	}
	return err
}

package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/roi"
)

// Periods offered in interactive mode, in display order.
var periodOptions = []string{"1mo", "3mo", "6mo", "ytd", "1y", "2y", "5y", "max"}

// PromptForAction asks which dashboard tool to use next.
func PromptForAction() (Action, error) {
	options := make([]string, 0, len(actions))
	for _, a := range actions {
		options = append(options, a.DisplayName())
	}

	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return ActionExit, err
	}
	return actionFromDisplayName(choice), nil
}

// PromptForQuestion prompts for a question about the financial documents
func PromptForQuestion() (string, error) {
	var question string
	prompt := &survey.Input{
		Message: "Ask a question about the financial documents:",
		Help:    "e.g. What was the revenue growth in Q3?",
	}
	err := survey.AskOne(prompt, &question, survey.WithValidator(notBlank("question")))
	return strings.TrimSpace(question), err
}

// PromptForText prompts for a passage to classify
func PromptForText() (string, error) {
	var text string
	prompt := &survey.Multiline{
		Message: "Paste the financial text to analyze:",
		Help:    "Earnings call excerpts, news headlines or report paragraphs work well",
	}
	err := survey.AskOne(prompt, &text, survey.WithValidator(notBlank("text")))
	return strings.TrimSpace(text), err
}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker(message string) (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: message,
		Help:    "Letters, numbers, dots and hyphens, at most 10 characters",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		_, err := models.NormalizeSymbol(val.(string))
		return err
	}))
	if err != nil {
		return "", err
	}
	return models.NormalizeSymbol(ticker)
}

// PromptForPeriod prompts for the lookback window of a stock request
func PromptForPeriod(defaultPeriod string) (string, error) {
	options := periodOptions
	if !slices.Contains(options, defaultPeriod) {
		options = append(slices.Clone(options), defaultPeriod)
	}

	period := defaultPeriod
	prompt := &survey.Select{
		Message: "Select the analysis period:",
		Options: options,
		Default: defaultPeriod,
	}
	if err := survey.AskOne(prompt, &period); err != nil {
		return "", err
	}
	return period, nil
}

// PromptForROIInputs asks for the three ROI inputs, starting from current.
func PromptForROIInputs(current roi.Inputs) (roi.Inputs, error) {
	answers := struct {
		TeamSize     string
		HoursPerWeek string
		HourlyRate   string
	}{}

	questions := []*survey.Question{
		{
			Name: "TeamSize",
			Prompt: &survey.Input{
				Message: "Team size (analysts):",
				Default: strconv.Itoa(current.TeamSize),
			},
			Validate: numberInRange("team size", 1, 100, true),
		},
		{
			Name: "HoursPerWeek",
			Prompt: &survey.Input{
				Message: "Hours per week per analyst:",
				Default: strconv.FormatFloat(current.HoursPerWeekPerAnalyst, 'f', -1, 64),
			},
			Validate: numberInRange("hours per week", 1, 80, false),
		},
		{
			Name: "HourlyRate",
			Prompt: &survey.Input{
				Message: "Hourly rate ($):",
				Default: strconv.FormatFloat(current.HourlyRate, 'f', -1, 64),
			},
			Validate: numberInRange("hourly rate", 50, 500, false),
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return current, err
	}

	teamSize, _ := strconv.Atoi(strings.TrimSpace(answers.TeamSize))
	hours, _ := strconv.ParseFloat(strings.TrimSpace(answers.HoursPerWeek), 64)
	rate, _ := strconv.ParseFloat(strings.TrimSpace(answers.HourlyRate), 64)
	return roi.Inputs{TeamSize: teamSize, HoursPerWeekPerAnalyst: hours, HourlyRate: rate}, nil
}

// PromptContinue asks whether to go back to the menu
func PromptContinue() (bool, error) {
	again := true
	prompt := &survey.Confirm{
		Message: "Back to the menu?",
		Default: true,
	}
	err := survey.AskOne(prompt, &again)
	return again, err
}

func notBlank(field string) survey.Validator {
	return func(val interface{}) error {
		if strings.TrimSpace(val.(string)) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

// numberInRange mirrors the dashboard's input bounds.
func numberInRange(field string, lo, hi float64, integer bool) survey.Validator {
	return func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		var v float64
		if integer {
			n, err := strconv.Atoi(str)
			if err != nil {
				return fmt.Errorf("%s must be a whole number", field)
			}
			v = float64(n)
		} else {
			f, err := strconv.ParseFloat(str, 64)
			if err != nil {
				return fmt.Errorf("%s must be a number", field)
			}
			v = f
		}
		if v < lo || v > hi {
			return fmt.Errorf("%s must be between %v and %v", field, lo, hi)
		}
		return nil
	}
}

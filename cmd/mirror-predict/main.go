// mirror-predict runs a single goal through the pipeline from the command
// line. With -offline it skips the language model and reports the base rate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lbodkin223/productionprivateMirrorOS/internal/config"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/odds"
	"github.com/lbodkin223/productionprivateMirrorOS/internal/share"
)

func main() {
	offline := flag.Bool("offline", false, "skip the language model and score on the base rate only")
	contextText := flag.String("context", "", "free-text circumstances (age, experience, resources)")
	trials := flag.Int("trials", 0, "Monte Carlo trial count (0 = configured default)")
	seedFlag := flag.Int64("seed", 0, "RNG seed for reproducible runs")
	jsonOut := flag.Bool("json", false, "print the full result as JSON")
	markdown := flag.Bool("markdown", false, "print the shareable markdown card")
	flag.Parse()

	goalText := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if goalText == "" {
		log.Fatal(`usage: mirror-predict [-offline] [-seed N] [-trials N] [-context "..."] "goal statement"`)
	}
	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var runner odds.PhaseRunner
	if *offline {
		runner = offlineRunner{}
	} else {
		caller, err := odds.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatal(err)
		}
		runner = odds.NewLLMPhaseRunner(odds.NewPhaseExecutor(caller))
	}
	predictor := odds.NewPredictor(odds.NewOrchestrator(runner, nil), odds.NewEngine())
	predictor.SetDefaultTrials(cfg.Trials)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req := odds.PredictionRequest{GoalText: goalText, ContextText: *contextText, Trials: *trials}
	if seedSet {
		req.Seed = seedFlag
	}

	res, err := predictor.Predict(ctx, req)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *jsonOut:
		blob, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(blob))
	case *markdown:
		sum, err := share.Build(res)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(sum.Markdown)
	default:
		printHuman(res)
	}
}

func printHuman(res odds.PredictionResult) {
	fmt.Printf("Goal:      %s\n", res.Goal.Statement)
	fmt.Printf("Domain:    %s\n", res.Goal.Domain)
	fmt.Printf("Base rate: %.1f%%\n", res.ProbabilityBaseline*100)
	fmt.Printf("Projected: %.1f%%  (range %.1f%% to %.1f%%)\n",
		res.ProbabilityProjected*100, res.Interval.Low*100, res.Interval.High*100)
	fmt.Printf("Outlook:   %s\n", res.Assessment.Category)
	if res.Mode == odds.ReportModeDegraded {
		fmt.Printf("Note:      degraded run (%s)\n", res.Diagnostics.Extraction.DegradedReason)
	}
	fmt.Println()
	fmt.Println(res.Assessment.Explanation)

	if len(res.TopFactors) > 0 {
		fmt.Println("\nTop factors:")
		for _, f := range res.TopFactors {
			marker := "+"
			if f.Direction == odds.DirectionDrag {
				marker = "-"
			}
			fmt.Printf("  [%s] %s\n", marker, f.Explanation)
		}
	}
	if len(res.Assessment.Improvements) > 0 {
		fmt.Println("\nTo improve your odds:")
		for i, s := range res.Assessment.Improvements {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
	}
	fmt.Println()
	fmt.Println(res.Disclaimer)
}

// offlineRunner satisfies odds.PhaseRunner without any network calls. Goals
// land in the fallback domain with no extracted variables, so the result is
// the population base rate with a wide band.
type offlineRunner struct{}

func (offlineRunner) RunGoalPhase(ctx context.Context, req odds.PredictionRequest) (odds.GoalDescriptor, odds.PhaseAttemptMetrics, error) {
	return odds.GoalDescriptor{
		Statement: req.GoalText,
		Domain:    odds.DomainOther,
		Summary:   req.GoalText,
	}, odds.PhaseAttemptMetrics{}, nil
}

func (offlineRunner) RunVariablesPhase(ctx context.Context, req odds.PredictionRequest, goal odds.GoalDescriptor) (odds.VariablesOutput, odds.PhaseAttemptMetrics, error) {
	return odds.VariablesOutput{}, odds.PhaseAttemptMetrics{}, nil
}

func (offlineRunner) RunStandardizePhase(ctx context.Context, goal odds.GoalDescriptor, vars odds.VariablesOutput) (odds.StandardizeOutput, odds.PhaseAttemptMetrics, error) {
	return odds.StandardizeOutput{}, odds.PhaseAttemptMetrics{}, nil
}

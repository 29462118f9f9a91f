package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/battsched/battsched/config"
	"github.com/battsched/battsched/core/forecast"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/optimizer"
	"github.com/battsched/battsched/core/planner"
	"github.com/battsched/battsched/core/protection"
	"github.com/battsched/battsched/core/sim"
	"github.com/battsched/battsched/infra/logger"
)

var planFrom string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute and print the schedule for the configured forecast",
	RunE:  planOnce,
}

func init() {
	planCmd.Flags().StringVar(&planFrom, "from", "", "start of the horizon (RFC3339, default now)")
	rootCmd.AddCommand(planCmd)
}

type plannedInterval struct {
	Timestamp time.Time       `json:"timestamp"`
	Mode      string          `json:"mode"`
	Reason    string          `json:"reason"`
	BuyPrice  float64         `json:"buy_price"`
	SoCKWh    float64         `json:"soc_kwh"`
	NetCost   float64         `json:"net_cost"`
	Tags      []string        `json:"tags,omitempty"`
	Flags     map[string]bool `json:"flags,omitempty"`
}

type planOutput struct {
	Start      time.Time            `json:"start"`
	Intervals  []plannedInterval    `json:"intervals"`
	TotalCost  float64              `json:"total_cost"`
	FinalSoC   float64              `json:"final_soc_kwh"`
	Comparison optimizer.Comparison `json:"comparison"`
	Planner    planner.Outcome      `json:"planner"`
}

func planOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	from := time.Now()
	if planFrom != "" {
		from, err = time.Parse(time.RFC3339, planFrom)
		if err != nil {
			return fmt.Errorf("parse --from: %w", err)
		}
	}

	simulator, err := sim.New(cfg.Battery, cfg.SinkKWh)
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	fixture, err := forecast.LoadFixture(cfg.Fixture)
	if err != nil {
		return fmt.Errorf("forecast fixture: %w", err)
	}
	asm, err := forecast.NewAssembler(fixture, fixture, fixture, cfg.Forecast, logger.New("assembler"))
	if err != nil {
		return fmt.Errorf("assembler: %w", err)
	}
	opt, err := optimizer.New(simulator, cfg.Optimizer, logger.New("optimizer"))
	if err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	pl, err := planner.New(simulator, cfg.Planner, logger.New("planner"))
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}

	tl, err := asm.Assemble(context.Background(), from, cfg.InitialSoC)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	res := opt.Optimize(tl)
	tl = res.Timeline

	cons := planner.Constraints{TargetSoCPercent: cfg.Scheduler.TargetSoCPercent}
	if required, ok := protection.RequiredSoC(tl, cfg.Battery, cfg.Protection); ok {
		cons.HasProtection = true
		cons.ProtectionSoCKWh = required
		cons.ProtectionWindow = tl.Len()
	}
	tl, outcome := pl.Plan(tl, cons)

	out := planOutput{
		Start:      tl.Start(),
		TotalCost:  tl.TotalCost(),
		FinalSoC:   tl.FinalSoC(),
		Comparison: res.Comparison,
		Planner:    outcome,
	}
	for i := 0; i < tl.Len(); i++ {
		iv := tl.Interval(i)
		pt := tl.Point(i)
		pi := plannedInterval{
			Timestamp: iv.Timestamp,
			Mode:      pt.Mode.String(),
			Reason:    pt.Reason.String(),
			BuyPrice:  iv.BuyPrice,
			SoCKWh:    pt.SoCAfterKWh,
			NetCost:   pt.NetCost,
		}
		if iv.Tags&model.DataPriceMissing != 0 {
			pi.Tags = append(pi.Tags, "price_gap")
		}
		if iv.Tags&model.DataSolarMissing != 0 {
			pi.Tags = append(pi.Tags, "solar_fallback")
		}
		if iv.Tags&model.DataLoadMissing != 0 {
			pi.Tags = append(pi.Tags, "load_fallback")
		}
		if pt.FloorClamped || pt.CeilClamped {
			pi.Flags = map[string]bool{}
			if pt.FloorClamped {
				pi.Flags["floor_clamped"] = true
			}
			if pt.CeilClamped {
				pi.Flags["ceil_clamped"] = true
			}
		}
		out.Intervals = append(out.Intervals, pi)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

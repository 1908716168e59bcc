package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/internal/bootstrap"
	"edgecheck/internal/calibration"
	"edgecheck/internal/config"
	"edgecheck/internal/fdr"
	"edgecheck/internal/nullcache"
	"edgecheck/internal/pbo"
	"edgecheck/internal/realitycheck"
	"edgecheck/internal/seed"
	"edgecheck/internal/sharpe"
)

// familyPayload is the JSON shape the upstream pipeline hands over: one
// time-aligned series per hypothesis plus its observed statistic.
type familyPayload struct {
	FamilyID   string `json:"family_id"`
	Hypotheses []struct {
		ID       string    `json:"id"`
		Observed float64   `json:"observed"`
		Series   []float64 `json:"series"`
	} `json:"hypotheses"`
}

func newRCCmd() *cobra.Command {
	var configPath, inputPath, outPath string
	var stepdown bool

	cmd := &cobra.Command{
		Use:   "rc",
		Short: "Reality Check over a hypothesis family",
		RunE: func(cmd *cobra.Command, args []string) error {
			ambient, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(ambient)

			run, err := config.LoadRunConfig(configPath)
			if err != nil {
				return err
			}

			var payload familyPayload
			if err := readJSON(inputPath, &payload); err != nil {
				return err
			}
			hyps := make([]family.Hypothesis, len(payload.Hypotheses))
			for i, h := range payload.Hypotheses {
				hyps[i] = family.Hypothesis{
					ID:       core.HypothesisID(h.ID),
					Observed: h.Observed,
					Series:   h.Series,
				}
			}
			fam, err := family.New(core.FamilyID(payload.FamilyID), hyps)
			if err != nil {
				return err
			}

			stat, err := bootstrap.ParseStatistic(run.Statistic)
			if err != nil {
				return err
			}
			method, err := bootstrap.ParseMethod(run.Method)
			if err != nil {
				return err
			}

			spec := seed.Spec{
				RunKey:  core.RunKey(run.RunKey),
				Salt:    seed.SaltRCNull,
				FoldID:  run.Horizon,
				Version: run.AlgoVersion,
			}
			gen, err := bootstrap.NewNullGenerator(fam, stat, bootstrap.Config{
				NSim:           run.NSim,
				Method:         method,
				AvgBlockLength: run.AvgBlockLength,
			}, spec)
			if err != nil {
				return err
			}

			cache, err := nullcache.New(ambient.CacheDir, log, nullcache.WithDisabled(ambient.CacheDisabled))
			if err != nil {
				return err
			}
			key := nullcache.Key{
				AlgoVersion:  run.AlgoVersion,
				FamilyID:     fam.ID(),
				DatasetID:    core.DatasetID(run.DatasetID),
				CodeRevision: engineVersion,
				Metric:       run.Statistic,
				Horizon:      run.Horizon,
				NSim:         run.NSim,
				Seed:         spec.Root(),
				Method:       run.Method,
				BlockParam:   run.AvgBlockLength,
			}

			engine := realitycheck.NewEngine(log)
			res, err := engine.RunCached(context.Background(), fam, gen, spec, realitycheck.Config{
				EnableStepdown: stepdown || ambient.EnableStepdown,
				Workers:        ambient.Workers,
			}, cache, key)
			if err != nil {
				return err
			}

			log.Info().
				Str("family", fam.ID().String()).
				Float64("rc_p_value", res.RCPValue).
				Int("actual_n_sim", res.ActualNSim).
				Msg("reality check complete")
			return writeArtifact(outPath, "reality_check", res)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "run.yaml", "run config yaml")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "family payload JSON (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	cmd.Flags().BoolVar(&stepdown, "stepdown", false, "compute Romano-Wolf adjusted p-values")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newDSRCmd() *cobra.Command {
	var configPath, inputPath, outPath string

	cmd := &cobra.Command{
		Use:   "dsr",
		Short: "Deflated Sharpe Ratio for one PnL series",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRunConfig(configPath)
			if err != nil {
				return err
			}

			var returns []float64
			if err := readJSON(inputPath, &returns); err != nil {
				return err
			}

			res := sharpe.Deflate(sharpe.Input{
				Returns:     returns,
				BarsPerYear: run.BarsPerYear,
				TrialCount:  run.TrialCount,
			})
			return writeArtifact(outPath, "deflated_sharpe", res)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "run.yaml", "run config yaml")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "returns JSON array (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newFDRCmd() *cobra.Command {
	var configPath, inputPath, outPath string

	cmd := &cobra.Command{
		Use:   "fdr",
		Short: "BH/BY adjusted p-values and discoveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRunConfig(configPath)
			if err != nil {
				return err
			}

			var raw map[string]float64
			if err := readJSON(inputPath, &raw); err != nil {
				return err
			}

			proc, err := fdr.ParseProcedure(run.FDRProcedure)
			if err != nil {
				return err
			}
			set, err := fdr.Adjust(raw, proc, run.TargetFDR)
			if err != nil {
				return err
			}
			return writeArtifact(outPath, "adjusted_p_values", set)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "run.yaml", "run config yaml")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "hypothesis_id -> raw p JSON (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newPBOCmd() *cobra.Command {
	var configPath, inputPath, outPath string

	cmd := &cobra.Command{
		Use:   "pbo",
		Short: "CSCV probability of backtest overfitting",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.LoadRunConfig(configPath)
			if err != nil {
				return err
			}

			var matrix [][]float64
			if err := readJSON(inputPath, &matrix); err != nil {
				return err
			}

			stat, err := bootstrap.ParseStatistic(run.Statistic)
			if err != nil {
				return err
			}

			// The subsample seed is derived, never defaulted: the CSCV salt
			// plus the run key pins the split selection.
			spec := seed.Spec{
				RunKey:  core.RunKey(run.RunKey),
				Salt:    seed.SaltCSCVSplits,
				Version: run.AlgoVersion,
			}
			res, err := pbo.Estimate(matrix, pbo.Config{
				SplitCount: run.CSCVSplits,
				MaxSplits:  run.CSCVMaxSplits,
				Statistic:  stat,
			}, spec.RNG())
			if err != nil {
				return err
			}
			return writeArtifact(outPath, "pbo", res)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "run.yaml", "run config yaml")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "T x J return matrix JSON (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newCalibrateCmd() *cobra.Command {
	var mode, outPath string

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run the calibration harness against synthetic nulls",
		RunE: func(cmd *cobra.Command, args []string) error {
			ambient, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger(ambient)

			m := calibration.FastMode()
			if mode == "slow" {
				m = calibration.SlowMode()
			}
			h := calibration.New("edgecheck-calibrate", m, log)

			report := map[string]any{"mode": m.Name}
			for _, scenario := range []calibration.Scenario{
				calibration.ScenarioIID,
				calibration.ScenarioAR1,
				calibration.ScenarioCrossCorrelated,
				calibration.ScenarioMeanShift,
			} {
				rate, err := h.RCRejectionRate(context.Background(), scenario, 0.05)
				if err != nil {
					return err
				}
				report["rc_rejection_rate_"+string(scenario)] = rate
			}

			bhRate, err := h.BHFamilywiseErrorRate(0.05, 50)
			if err != nil {
				return err
			}
			report["bh_error_rate"] = bhRate

			pboAvg, err := h.AveragePBO(8, 6, 0)
			if err != nil {
				return err
			}
			report["pbo_noise_average"] = pboAvg

			return writeArtifact(outPath, "calibration", report)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "fast", "fast or slow")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (default stdout)")
	return cmd
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse input %s: %w", path, err)
	}
	return nil
}

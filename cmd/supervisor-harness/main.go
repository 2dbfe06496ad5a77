// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command supervisor-harness manually exercises the Supervisor state
// machine against an in-memory validator set and dispatcher. It is not a
// production entrypoint — the real Supervisor runs embedded inside a node
// process, out of scope for this repository.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/ids"
	"github.com/luxfi/supervisor"
	supervisorconfig "github.com/luxfi/supervisor/config"
	"github.com/luxfi/supervisor/memdb"
	"github.com/luxfi/supervisor/supervisortest"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var validatorCount int
	var mode string

	root := &cobra.Command{
		Use:   "supervisor-harness",
		Short: "Drive the Supervisor state machine against an in-memory cluster",
	}

	demo := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted two-phase artifact deploy scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(validatorCount, mode)
		},
	}
	demo.Flags().IntVar(&validatorCount, "validators", 4, "number of simulated validators")
	demo.Flags().StringVar(&mode, "mode", "decentralized", "quorum mode: simple|decentralized")

	root.AddCommand(demo)
	return root
}

func runDemo(validatorCount int, modeFlag string) error {
	zapLog, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building zap logger: %w", err)
	}
	defer zapLog.Sync()
	logger := newZapLogger(zapLog)

	mode := supervisor.ModeDecentralized
	if modeFlag == "simple" {
		mode = supervisor.ModeSimple
	}

	validators := make([]ids.NodeID, validatorCount)
	for i := range validators {
		validators[i] = ids.GenerateTestNodeID()
	}

	core := supervisortest.NewCore(mode, validators...)
	dispatcher := supervisortest.NewDispatcher()
	runtime := supervisortest.NewRuntime()

	cfg := *supervisorconfig.DefaultConfig()
	cfg.TotalValidators = validatorCount
	if mode == supervisor.ModeSimple {
		cfg.Mode = supervisorconfig.Simple
	}

	report := supervisorconfig.NewValidator().WithMode(supervisorconfig.SoftMode).ValidateDetailed(&cfg)
	for _, w := range report.Warnings {
		logger.Warn("config preflight warning", "field", w.Field, "constraint", w.Constraint, "suggestion", w.Suggestion)
	}
	if !report.Valid {
		for _, e := range report.Errors {
			logger.Error("config preflight error", "field", e.Field, "constraint", e.Constraint)
		}
		return fmt.Errorf("invalid supervisor configuration, see preflight errors above")
	}

	sup, err := supervisor.New(memdb.New(), logger, cfg)
	if err != nil {
		return fmt.Errorf("constructing supervisor: %w", err)
	}

	artifact := supervisor.ArtifactID{RuntimeID: 0, Name: "demo-service", Version: supervisor.Version{Major: 1}}
	deployReq := supervisor.DeployRequest{Artifact: artifact, DeadlineHeight: 1000}

	core.SetHeight(1)
	for _, v := range validators {
		ctx := supervisor.TxContext{Height: 1, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		if err := sup.RequestArtifactDeploy(ctx, deployReq); err != nil {
			return fmt.Errorf("deploy request from %s: %w", v, err)
		}
	}

	for _, v := range validators {
		ctx := supervisor.TxContext{Height: 2, Author: v, Core: core, Dispatcher: dispatcher, Runtime: runtime}
		if err := sup.ReportDeployResult(ctx, supervisor.DeployResult{Request: deployReq}); err != nil {
			return fmt.Errorf("deploy report from %s: %w", v, err)
		}
	}

	logger.Info("demo scenario complete", "artifact", artifact.String(), "validators", len(validators))
	time.Sleep(10 * time.Millisecond)
	return nil
}

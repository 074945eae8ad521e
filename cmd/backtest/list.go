package main

import (
	"context"
	"fmt"

	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/entry"
	"github.com/rxtech-lab/argo-backtest/internal/strategy/exit"
	"github.com/urfave/cli/v3"
)

func listAction(_ context.Context, _ *cli.Command) error {
	fmt.Println(TitleStyle.Render("Entry strategies"))
	for _, name := range entry.Names() {
		fmt.Println("  " + name)
	}

	fmt.Println(TitleStyle.Render("Exit strategies"))
	for _, name := range exit.Names() {
		fmt.Println("  " + name)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	switch {
	case cmd.String("entry") != "":
		schema, err = entry.Schema(cmd.String("entry"))
	case cmd.String("exit") != "":
		schema, err = exit.Schema(cmd.String("exit"))
	default:
		schema, err = engine_v1.NewBacktestEngineV1().GetConfigSchema()
	}

	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}
